//go:build !protogen

package identity

// NewRemoteDirectory is a no-op in builds without generated identity protos;
// callers fall back to the local users table.
func NewRemoteDirectory(_ string) (Directory, error) {
	return nil, nil
}
