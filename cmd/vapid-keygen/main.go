// Command vapid-keygen prints a fresh VAPID key pair for the worker's
// push configuration. Run once per deployment and keep the private key
// in secrets.
package main

import (
	"fmt"
	"os"

	"notification-engine/pkg/webpush"
)

func main() {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate VAPID keys: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
}
