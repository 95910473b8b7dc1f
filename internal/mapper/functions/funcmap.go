// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package functions

import "text/template"

// FuncMap returns the helpers exposed to mapping templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		// strings
		"quote":      Quote,
		"trimSpace":  TrimSpace,
		"trimPrefix": TrimPrefix,
		"trimSuffix": TrimSuffix,
		"replace":    Replace,
		"upper":      ToUpper,
		"lower":      ToLower,
		"truncate":   Truncate,
		"split":      Split,
		"join":       Join,
		"b64enc":     EncodeBase64,
		"b64dec":     DecodeBase64,

		// lists
		"list":    List,
		"append":  Append,
		"prepend": Prepend,
		"first":   First,
		"last":    Last,

		// objects
		"dict":     Object,
		"toJSON":   ToJSON,
		"pick":     Pick,
		"get":      Get,
		"set":      Set,
		"default":  Default,
		"coalesce": Coalesce,

		// numbers
		"float":     ToFloat,
		"negate":    Negate,
		"fromCents": FromCents,
		"sign":      Sign,

		// time
		"now":        Now,
		"toRFC3339":  ToRFC3339,
		"unixToTime": UnixToRFC3339,

		// identifiers
		"sha256sum": Sha256Sum,
		"sha512sum": Sha512Sum,
		"uuidv4":    UUIDV4,
		"uuidv5":    UUIDV5,
		"uuidv7":    UUIDV7,
	}
}
