package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const tempPasswordLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTempPassword generates the initial password an admin-created
// account receives, in the form TEMP-XXXXXX-9999: six random uppercase
// letters and four random digits.  The value is handed to the user out
// of band and is expected to be changed on first login.
func NewTempPassword() (string, error) {
	letters := make([]byte, 6)
	for i := range letters {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordLetters))))
		if err != nil {
			return "", err
		}
		letters[i] = tempPasswordLetters[n.Int64()]
	}
	digits, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TEMP-%s-%04d", letters, digits.Int64()), nil
}
