package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("icebreakr %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`icebreakr - Personalized cold email openers from a prospect URL

Usage:
  icebreakr <command>

Commands:
  serve         Start the web server
  version       Print the icebreakr version
  help          Show this help message

Configuration is read from the environment and an optional .env file.
Required: OPENAI_API_KEY (or GEMINI_API_KEY with LLM_PROVIDER=gemini).
Optional: STRIPE_SECRET_KEY and STRIPE_PRO_PRICE_ID enable the Pro plan.

Examples:
  icebreakr serve
  ADDR=:8080 LLM_PROVIDER=gemini icebreakr serve`)
}
