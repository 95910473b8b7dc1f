// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"

	"github.com/google/uuid"
)

func Sha256Sum(input any) string {
	hash := sha256.Sum256([]byte(castToString(input)))
	return hex.EncodeToString(hash[:])
}

func Sha512Sum(input any) string {
	hash := sha512.Sum512([]byte(castToString(input)))
	return hex.EncodeToString(hash[:])
}

func UUIDV4() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// UUIDV5 derives a stable identifier from a provider id, so the same upstream record
// always maps to the same unified id.
func UUIDV5(name any) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(castToString(name))).String()
}

func UUIDV7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
