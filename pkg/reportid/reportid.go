// Package reportid issues short synthetic report identifiers.
package reportid

import (
	"crypto/rand"
	"math/big"
)

// Type prefixes. They are advisory only; uniqueness comes from the random suffix
// and the conflict-free insert path in the report store.
const (
	PrefixStudentGeneral    = "SG"
	PrefixStudentRanged     = "SR"
	PrefixCourseGeneral     = "CG"
	PrefixCourseRanged      = "CR"
	PrefixInstructorGeneral = "IG"
	PrefixInstructorRanged  = "IR"
)

const (
	alphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixSize = 6
)

var alphabetSize = big.NewInt(int64(len(alphabet)))

// New returns prefix followed by six random base-36 characters.
func New(prefix string) string {
	buf := make([]byte, suffixSize)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			panic("reportid: crypto/rand unavailable: " + err.Error())
		}
		buf[i] = alphabet[n.Int64()]
	}
	return prefix + string(buf)
}
