//go:build linux
// +build linux

package menufs

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/menu"
)

const entryAttrTimeout = 30 * time.Second

// Mount mounts the tree at dir, rooted at the category menu. The caller
// waits on and unmounts the returned server.
func Mount(dir string, tree *Tree, allowOther bool, log logrus.FieldLogger) (*fuse.Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	root := &dirNode{tree: tree, link: menu.Link{Action: menu.ActionCategories}, log: log}
	to := entryAttrTimeout
	opts := &fs.Options{
		EntryTimeout: &to,
		AttrTimeout:  &to,
		MountOptions: fuse.MountOptions{
			AllowOther: allowOther,
			FsName:     "tv4play",
			Name:       "tv4play",
		},
	}
	return fs.Mount(dir, root, opts)
}

// dirNode lists a menu on demand. Listings go through the response cache,
// so repeated reads do not hit the upstream.
type dirNode struct {
	fs.Inode
	tree *Tree
	link menu.Link
	log  logrus.FieldLogger
}

var _ fs.NodeGetattrer = (*dirNode)(nil)
var _ fs.NodeReaddirer = (*dirNode)(nil)
var _ fs.NodeLookuper = (*dirNode)(nil)

func (n *dirNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | 0555
	return 0
}

func (n *dirNode) list(ctx context.Context) ([]Entry, syscall.Errno) {
	entries, err := n.tree.List(ctx, n.link)
	if err != nil {
		n.log.WithError(err).WithField("path", n.link.Path("")).Warn("menufs: list failed")
		return nil, syscall.EIO
	}
	return entries, 0
}

func (n *dirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, errno := n.list(ctx)
	if errno != 0 {
		return nil, errno
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		de := fuse.DirEntry{Name: e.Name, Mode: fuse.S_IFREG | 0444}
		if e.Dir {
			de.Mode = fuse.S_IFDIR | 0555
			de.Ino = linkIno(*e.Link)
		}
		out = append(out, de)
	}
	return fs.NewListDirStream(out), 0
}

func (n *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	entries, errno := n.list(ctx)
	if errno != 0 {
		return nil, errno
	}
	for _, e := range entries {
		if e.Name != name {
			continue
		}
		out.SetEntryTimeout(entryAttrTimeout)
		out.SetAttrTimeout(entryAttrTimeout)
		if e.Dir {
			out.Mode = fuse.S_IFDIR | 0555
			child := &dirNode{tree: n.tree, link: *e.Link, log: n.log}
			return n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR, Ino: linkIno(*e.Link)}), 0
		}
		out.Mode = fuse.S_IFREG | 0444
		out.Size = uint64(len(e.Content))
		child := &fs.MemRegularFile{Data: e.Content, Attr: fuse.Attr{Mode: 0444}}
		return n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG}), 0
	}
	return nil, syscall.ENOENT
}
