package dynamicstore

import "github.com/dynamicstore/dynamicstore/internal/layout"

// LoadUserMetadata returns a copy of the caller-owned metadata region
// stamped by the last StoreUserMetadata call.
func (e *engine) LoadUserMetadata() ([]byte, error) {
	size := e.meta.UserMetadataSize()
	out := make([]byte, size)
	copy(out, e.meta.UserMetadataBytes()[:size])
	return out, nil
}

// StoreUserMetadata overwrites the caller-owned metadata region.
func (e *engine) StoreUserMetadata(data []byte) error {
	if uint64(len(data)) > layout.MaxUserMetadataSize {
		return ErrUserMetadataTooLarge
	}

	dst := e.meta.UserMetadataBytes()
	copy(dst, data)
	for i := len(data); i < len(dst); i++ {
		dst[i] = 0
	}
	e.meta.SetUserMetadataSize(uint64(len(data)))

	e.logger.Debug("stored user metadata", Field{"size", len(data)})
	return nil
}
