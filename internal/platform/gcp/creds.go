// Package gcp wraps the Google Cloud Vision and Speech-to-Text clients that turn
// photographed or spoken student questions into text.
package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// Enabled reports whether Google credentials are present in the environment.
func Enabled() bool {
	return credentialsFromEnv() != ""
}

// ClientOptionsFromEnv accepts either inline JSON or a file path. With neither set
// the clients fall back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := credentialsFromEnv()
	opts := []option.ClientOption{}
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

func credentialsFromEnv() string {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return creds
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
