package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/scalarfield/pkg/codec"
	"github.com/ssargent/scalarfield/pkg/fieldstore"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FieldResponse describes a stored field
type FieldResponse struct {
	ID        string `json:"id"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	SizeBytes int    `json:"size_bytes"`
}

// FieldDetailResponse is returned by GET /fields/{id}?format=json
type FieldDetailResponse struct {
	FieldResponse
	Stats codec.FieldStats `json:"stats"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port          int
	Bind          string
	APIKey        string
	MaxFieldBytes int64
}

// FieldRepository is the storage used by the API handlers
type FieldRepository interface {
	Create(field *codec.ScalarField) (ksuid.KSUID, error)
	Read(id ksuid.KSUID) (*codec.ScalarField, error)
	ReadRaw(id ksuid.KSUID) ([]byte, error)
	Update(id ksuid.KSUID, field *codec.ScalarField) error
	Delete(id ksuid.KSUID) error
	List() ([]fieldstore.FieldInfo, error)
	Stats() (fieldstore.Stats, error)
}

var _ FieldRepository = (*fieldstore.Store)(nil)
