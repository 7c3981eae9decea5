package storage

import "time"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PresignTTL bounds how long download links handed to clients stay valid.
	PresignTTL time.Duration
}

// Enabled reports whether an endpoint was configured.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}
