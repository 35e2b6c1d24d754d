package ids

import "github.com/google/uuid"

// UUIDProvider issues UUIDv7 identifiers for new rows.
type UUIDProvider struct{}

// NewUUIDProvider constructs a provider backed by UUIDv7.
func NewUUIDProvider() *UUIDProvider {
	return &UUIDProvider{}
}

// NewID returns a fresh UUIDv7 string.
func (p *UUIDProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
