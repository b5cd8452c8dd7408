package env

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var Env map[string]string

// SetupEnvFile loads the first .env file it finds. Containers usually pass
// plain environment variables, so a missing file only reports false.
func SetupEnvFile() bool {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/membergate to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		loaded, err := godotenv.Read(envFile)
		if err == nil {
			Env = loaded
			return true
		}
	}

	Env = map[string]string{}
	return false
}

// Environ merges the process environment with the loaded .env map.
// Values from the .env file win.
func Environ() map[string]string {
	merged := make(map[string]string, len(Env))
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		merged[key] = val
	}
	for key, val := range Env {
		merged[key] = val
	}
	return merged
}
