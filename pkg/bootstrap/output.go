package bootstrap

import (
	"fmt"
	"io"
	"strings"
)

// PrintSeedResult writes a human readable summary of result to w
func PrintSeedResult(w io.Writer, result *SeedResult, data SeedData) {
	if result == nil {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nSEED COMPLETED\n%s\n", border, border)

	printSection(w, "Permissions", result.Permissions)
	printSection(w, "Roles", result.Roles)
	printSection(w, "Users", result.Users)

	if countCreated(result.Users) > 0 {
		fmt.Fprintln(w, "\nDemo credentials:")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, u := range data.Users {
			fmt.Fprintf(w, "  %-24s %-12s (%s)\n", u.Email, u.Password, u.Role)
		}
		fmt.Fprintln(w, "\n  Change these passwords before exposing the service.")
	}
	fmt.Fprintf(w, "%s\n\n", border)
}

func printSection(w io.Writer, title string, items []SeededItem) {
	fmt.Fprintf(w, "\n%s (%d created, %d existing):\n", title, countCreated(items), len(items)-countCreated(items))
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, item := range items {
		status := "existing"
		if item.Created {
			status = "created"
		}
		fmt.Fprintf(w, "  %-28s %s  %s\n", item.Name, item.ID, status)
	}
}
