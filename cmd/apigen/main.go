// The apigen tool prints the OpenAPI document for the public API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/KongzTech/moonzip-backend/internal/api"
)

func main() {
	encoded, err := json.MarshalIndent(api.OpenAPIDocument(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode openapi document: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
