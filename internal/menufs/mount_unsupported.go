//go:build !linux
// +build !linux

package menufs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Server stands in for the FUSE server on platforms without go-fuse support.
type Server struct{}

// Wait returns immediately.
func (*Server) Wait() {}

// Unmount is a no-op.
func (*Server) Unmount() error { return nil }

// Mount is unavailable on non-Linux builds because menufs depends on go-fuse.
func Mount(dir string, tree *Tree, allowOther bool, log logrus.FieldLogger) (*Server, error) {
	return nil, fmt.Errorf("menufs mount is only supported on linux builds")
}
