// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cli

import "strings"

const splitOn = ","

// StringToSlice splits a comma separated flag value. Elements are trimmed and
// empty elements are dropped, so "yml, ,yaml" yields [yml yaml].
func StringToSlice(s string) []string {
	elements := make([]string, 0)
	for _, v := range strings.Split(s, splitOn) {
		if v = strings.TrimSpace(v); v != "" {
			elements = append(elements, v)
		}
	}
	return elements
}
