// Package config loads the service configuration from the environment.
//
// Each group is a struct with cleanenv `env` tags. Load reads an optional
// .env file with godotenv first, so real environment variables win over the
// file. JWT_SECRET and JWT_REFRESH_SECRET have no defaults and Load fails
// without them.
package config
