//go:build mage

package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"

	"cazlyncNotifier/internal/auth"
)

// Build compiles the notifier into bin/notifier
func Build() error {
	return run("go", "build", "-o", "bin/notifier", "./cmd")
}

// Test runs the unit tests
func Test() error {
	return run("go", "test", "./...")
}

// Token prints a producer token for the change-feed ingress, valid for 24h
func Token(producer string) error {
	if producer == "" {
		return fmt.Errorf("producer name is required")
	}
	loadEnv()

	secret := getEnv("INGRESS_JWT_SECRET", "")
	if secret == "" {
		return fmt.Errorf("INGRESS_JWT_SECRET is not set")
	}

	token, err := auth.IssueToken(secret, producer, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// Helper functions

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func loadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
