package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// printResult writes a one-line summary, or v as JSON with --output json
func printResult(summary string, v any) error {
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(summary)
	return nil
}
