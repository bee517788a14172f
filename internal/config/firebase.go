package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type ServiceAccountCredentials struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
	UniverseDomain          string `json:"universe_domain"`
}

type FirebaseConfig struct {
	ProjectID   string
	DatabaseURL string
	Credentials ServiceAccountCredentials

	// PrivateKeyEncrypted is set when Credentials.PrivateKey is a KMS
	// ciphertext that must be decrypted before use.
	PrivateKeyEncrypted bool
}

type FirebaseClient struct {
	App       *firebase.App
	Firestore *firestore.Client
	Messaging *messaging.Client
}

// NewFirebaseClient opens the Firestore and Cloud Messaging clients.
func NewFirebaseClient(ctx context.Context, cfg *FirebaseConfig) (*FirebaseClient, error) {
	credentialsJSON, err := json.Marshal(cfg.Credentials)
	if err != nil {
		slog.Error("Failed to marshal Firebase credentials", slog.Any("error", err))
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   cfg.ProjectID,
		DatabaseURL: cfg.DatabaseURL,
	}, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		slog.Error("Failed to create Firebase app", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		slog.Error("Failed to create Firestore client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		firestoreClient.Close()
		slog.Error("Failed to create Messaging client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	slog.Info("Firebase connection initialized successfully", "project_id", cfg.ProjectID)
	return &FirebaseClient{
		App:       app,
		Firestore: firestoreClient,
		Messaging: messagingClient,
	}, nil
}

func (c *FirebaseClient) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	if err := c.Firestore.Close(); err != nil {
		slog.Error("Failed to close Firebase connection", slog.Any("error", err))
		return err
	}
	slog.Info("Firebase connection closed successfully")
	return nil
}

func validateEnvVariables(envVariables []string) error {
	if slices.Contains(envVariables, "") {
		return errors.New("missing required Firebase config environment variables")
	}
	return nil
}

// LoadFirebaseConfig reads the service account from FIREBASE_* variables.
func LoadFirebaseConfig() (*FirebaseConfig, error) {
	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	databaseURL := os.Getenv("FIREBASE_DATABASE_URL")
	firebaseType := os.Getenv("FIREBASE_TYPE")
	privateKeyID := os.Getenv("FIREBASE_PRIVATE_KEY_ID")
	privateKey := os.Getenv("FIREBASE_PRIVATE_KEY")
	clientEmail := os.Getenv("FIREBASE_CLIENT_EMAIL")
	clientID := os.Getenv("FIREBASE_CLIENT_ID")
	authURI := getEnv("FIREBASE_AUTH_URI", "https://accounts.google.com/o/oauth2/auth")
	tokenURI := getEnv("FIREBASE_TOKEN_URI", "https://oauth2.googleapis.com/token")
	authProviderCertURL := getEnv("FIREBASE_AUTH_PROVIDER_X509_CERT_URL", "https://www.googleapis.com/oauth2/v1/certs")
	clientCertURL := os.Getenv("FIREBASE_CLIENT_X509_CERT_URL")
	universeDomain := getEnv("FIREBASE_UNIVERSE_DOMAIN", "googleapis.com")

	requiredVars := []string{
		projectID,
		firebaseType,
		privateKeyID,
		privateKey,
		clientEmail,
		clientID,
		clientCertURL,
	}

	if err := validateEnvVariables(requiredVars); err != nil {
		slog.Error("Environment variable validation failed", slog.Any("error", err))
		return nil, err
	}

	return &FirebaseConfig{
		ProjectID:   projectID,
		DatabaseURL: databaseURL,
		Credentials: ServiceAccountCredentials{
			Type:                    firebaseType,
			ProjectID:               projectID,
			PrivateKeyID:            privateKeyID,
			PrivateKey:              unescapeKey(privateKey),
			ClientEmail:             clientEmail,
			ClientID:                clientID,
			AuthURI:                 authURI,
			TokenURI:                tokenURI,
			AuthProviderX509CertURL: authProviderCertURL,
			ClientX509CertURL:       clientCertURL,
			UniverseDomain:          universeDomain,
		},
		PrivateKeyEncrypted: strings.EqualFold(os.Getenv("FIREBASE_PRIVATE_KEY_KMS"), "true"),
	}, nil
}

// DecryptPrivateKey replaces an encrypted private key with its plaintext.
func (c *FirebaseConfig) DecryptPrivateKey(ctx context.Context, client KMSDecrypter) error {
	if !c.PrivateKeyEncrypted {
		return nil
	}
	key, err := DecryptSecret(ctx, client, c.Credentials.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt FIREBASE_PRIVATE_KEY: %w", err)
	}
	c.Credentials.PrivateKey = unescapeKey(key)
	c.PrivateKeyEncrypted = false
	return nil
}

// unescapeKey turns literal "\n" sequences from single-line env values back
// into newlines.
func unescapeKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}
