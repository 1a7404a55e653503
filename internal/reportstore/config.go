package reportstore

// Config holds all settings needed to reach the object store.
type Config struct {
	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string

	// Bucket receives the reports. It is created on connect when missing.
	Bucket string
}

// DefaultConfig returns a local-dev MinIO config writing to the
// fk-diagnostics bucket.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    "fk-diagnostics",
	}
}
