package domain

import "sort"

// aboCompat maps a donor ABO group to the recipient groups it may serve.
// Fixed domain data for red blood cells, not configurable.
var aboCompat = map[ABOGroup]map[ABOGroup]bool{
	ABOGroupO:  {ABOGroupO: true, ABOGroupA: true, ABOGroupB: true, ABOGroupAB: true},
	ABOGroupA:  {ABOGroupA: true, ABOGroupAB: true},
	ABOGroupB:  {ABOGroupB: true, ABOGroupAB: true},
	ABOGroupAB: {ABOGroupAB: true},
}

// rhCompatible: a negative donor serves any recipient; a positive donor
// serves positive recipients only.
func rhCompatible(donor, recipient RhFactor) bool {
	return donor == RhNegative || recipient == RhPositive
}

// IsCompatible reports whether a unit of the donor type may be transfused to
// a recipient of the given type. Unknown inputs yield false.
func IsCompatible(donor, recipient BloodType) bool {
	if !donor.Valid() || !recipient.Valid() {
		return false
	}
	return aboCompat[donor.ABO][recipient.ABO] && rhCompatible(donor.Rh, recipient.Rh)
}

// CompatibleDonorTypes returns the donor types compatible with the recipient,
// exact match first, then by descending population frequency (ties broken by
// composed form for determinism). Returns nil for malformed recipients.
func CompatibleDonorTypes(recipient BloodType) []BloodType {
	if !recipient.Valid() {
		return nil
	}
	freq := DefaultRarityTable()
	var out []BloodType
	for _, t := range AllBloodTypes {
		if IsCompatible(t, recipient) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i] == recipient {
			return out[j] != recipient
		}
		if out[j] == recipient {
			return false
		}
		wi, wj := freq.Weight(out[i]), freq.Weight(out[j])
		if wi != wj {
			return wi > wj
		}
		return out[i].String() < out[j].String()
	})
	return out
}
