package database

import (
	"fmt"
	"strings"
)

// ConstructDatabaseURL joins a server URL and a database name.
// Query parameters on the base URL are kept and sslmode defaults to disable.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, _ := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	base = strings.TrimRight(base, "/")

	databaseURL := fmt.Sprintf("%s/%s", base, databaseName)
	if query != "" {
		databaseURL += "?" + query
	}

	if !strings.Contains(query, "sslmode=") {
		separator := "&"
		if query == "" {
			separator = "?"
		}
		databaseURL += separator + "sslmode=disable"
	}

	return databaseURL
}
