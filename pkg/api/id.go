package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	pipelineIDPrefix = "pl_"
)

var pipelineIDPattern = regexp.MustCompile(`^pl_[a-zA-Z0-9]{24}$`)

// NewPipelineID generates a new pipeline ID with the "pl_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewPipelineID() string {
	return pipelineIDPrefix + randomAlphanumeric(idLength)
}

// ValidatePipelineID checks whether the given string is a valid pipeline ID.
func ValidatePipelineID(id string) bool {
	return pipelineIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
