package timit

// Phonemes61 is the full TIMIT phoneme inventory, in label order.
var Phonemes61 = []string{
	"aa", "ae", "ah", "ao", "aw", "ax", "ax-h", "axr", "ay", "b",
	"bcl", "ch", "d", "dcl", "dh", "dx", "eh", "el", "em", "en",
	"eng", "epi", "er", "ey", "f", "g", "gcl", "h#", "hh", "hv",
	"ih", "ix", "iy", "jh", "k", "kcl", "l", "m", "n", "ng",
	"nx", "ow", "oy", "p", "pau", "pcl", "q", "r", "s", "sh",
	"t", "tcl", "th", "uh", "uw", "ux", "v", "w", "y", "z",
	"zh",
}

// folding maps a phoneme onto its class in the 39 phoneme set. Phonemes not
// listed map onto themselves, "" discards the frame.
var folding = map[string]string{
	"ao": "aa", "ax": "ah", "ax-h": "ah", "axr": "er", "hv": "hh",
	"ix": "ih", "el": "l", "em": "m", "en": "n", "nx": "n",
	"eng": "ng", "zh": "sh", "ux": "uw",
	"pcl": "sil", "tcl": "sil", "kcl": "sil", "bcl": "sil", "dcl": "sil",
	"gcl": "sil", "h#": "sil", "pau": "sil", "epi": "sil",
	"q": "",
}

// Phonemes39 is the folded phoneme set, ordered by first appearance in Phonemes61.
var Phonemes39 []string

// reduce maps a label in Phonemes61 to a label in Phonemes39, or -1.
var reduce [61]int32

func init() {
	var index = map[string]int32{}
	for i, p := range Phonemes61 {
		target, ok := folding[p]
		if !ok {
			target = p
		}
		if target == "" {
			reduce[i] = -1
			continue
		}
		n, ok := index[target]
		if !ok {
			n = int32(len(Phonemes39))
			index[target] = n
			Phonemes39 = append(Phonemes39, target)
		}
		reduce[i] = n
	}
}

// Reduce folds a 61 set label into the 39 set. Negative labels pass through.
func Reduce(label int32) int32 {
	if label < 0 || int(label) >= len(reduce) {
		return -1
	}
	return reduce[label]
}
