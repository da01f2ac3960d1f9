// Command list-models prints the Gemini models visible to an API key.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/log"
)

func main() {
	var (
		keyEnv  = flag.String("api-key-env", "GEMINI_API_KEY", "Environment variable holding the API key")
		timeout = flag.Duration("timeout", 30*time.Second, "Request timeout")
	)
	flag.Parse()

	key := os.Getenv(*keyEnv)
	if key == "" {
		log.Fatalf("%s is not set", *keyEnv)
	}

	backend, err := summarizer.New("google", summarizer.Config{Name: "gemini", APIKey: key, Timeout: *timeout})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	lister, ok := summarizer.AsModelLister(backend)
	if !ok {
		log.Fatalf("%s: %v", backend.Name(), summarizer.ErrListingUnsupported)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Fatalf("Failed to list models: %v", err)
	}
	for _, m := range models {
		fmt.Printf("%s | supports generate_content: %t\n", m.Name, m.SupportsGenerateContent)
	}
}
