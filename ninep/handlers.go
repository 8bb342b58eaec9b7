package ninep

import (
	"github.com/ninelib/ninep/nsfs"
	"github.com/ninelib/ninep/wire"
)

func (c *conn) handleWalk(m wire.Twalk) error {
	base, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	if len(m.Wname) == 0 {
		// Walking with no path elements clones fid onto newfid, naming
		// the same resource.
		c.fids[m.Newfid] = &openFid{handle: base.handle}
		return c.enc.Rwalk(m.Tag(), nil)
	}

	handle := base.handle
	qids := make([]wire.Qid, 0, len(m.Wname))
	var walkErr error
	for _, name := range m.Wname {
		node := c.srv.Tree.Node(handle)
		if !node.IsWalkable() {
			walkErr = nsfs.ErrNotDirectory
			break
		}
		h, err := c.srv.Tree.Resolve(handle, []string{name})
		if err != nil {
			walkErr = err
			break
		}
		handle = h
		qids = append(qids, c.srv.Tree.Node(handle).Qid())
	}

	// A walk that resolves nothing at all (the first element already
	// failed) has no partial result to report; the wire protocol has no
	// way to carry both a qid list and an error, so this is the one case
	// that must be an Rerror rather than a short Rwalk.
	if len(qids) == 0 && len(m.Wname) > 0 {
		return c.enc.Rerror(m.Tag(), walkErr.Error())
	}
	if len(qids) == len(m.Wname) {
		c.fids[m.Newfid] = &openFid{handle: handle}
	}
	return c.enc.Rwalk(m.Tag(), qids)
}

func (c *conn) handleOpen(m wire.Topen) error {
	f, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	node := c.srv.Tree.Node(f.handle)
	if err := node.Open("", m.Mode); err != nil {
		return c.enc.Rerror(m.Tag(), err.Error())
	}
	f.opened = true
	f.mode = m.Mode
	return c.enc.Ropen(m.Tag(), node.Qid(), 0)
}

func (c *conn) handleCreate(m wire.Tcreate) error {
	f, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	var (
		h   nsfs.Handle
		err error
	)
	if m.Perm&wire.DMDIR != 0 {
		h, err = c.srv.Tree.MountDir(f.handle, m.Name)
	} else {
		h, err = c.srv.Tree.MountData(f.handle, m.Name, nil, m.Perm)
	}
	if err != nil {
		return c.enc.Rerror(m.Tag(), err.Error())
	}
	node := c.srv.Tree.Node(h)
	if err := node.Open("", m.Mode); err != nil {
		return c.enc.Rerror(m.Tag(), err.Error())
	}
	f.handle = h
	f.opened = true
	f.mode = m.Mode
	return c.enc.Rcreate(m.Tag(), node.Qid(), 0)
}

func (c *conn) handleRead(m wire.Tread) error {
	f, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	node := c.srv.Tree.Node(f.handle)
	buf := make([]byte, m.Count)
	n, err := node.Read(buf, int64(m.Offset))
	if err != nil {
		return c.enc.Rerror(m.Tag(), err.Error())
	}
	return c.enc.Rread(m.Tag(), buf[:n])
}

func (c *conn) handleWrite(m wire.Twrite) error {
	f, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	node := c.srv.Tree.Node(f.handle)
	n, err := node.Write(m.Data, int64(m.Offset))
	if err != nil {
		return c.enc.Rerror(m.Tag(), err.Error())
	}
	return c.enc.Rwrite(m.Tag(), uint32(n))
}

func (c *conn) handleStat(m wire.Tstat) error {
	f, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	node := c.srv.Tree.Node(f.handle)
	return c.enc.Rstat(m.Tag(), nsfs.StatOf("", node))
}

func (c *conn) handleWstat(m wire.Twstat) error {
	if _, ok := c.fids[m.Fid]; !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	// Metadata mutation beyond content (permissions, ownership, rename)
	// is not modeled by nsfs.Node; acknowledge unconditionally, the way
	// a read-mostly synthetic file tree commonly does for attributes it
	// does not track.
	return c.enc.Rwstat(m.Tag())
}

func (c *conn) handleClunk(m wire.Tclunk) error {
	if f, ok := c.fids[m.Fid]; ok {
		c.srv.Tree.Node(f.handle).Close("")
	}
	delete(c.fids, m.Fid)
	return c.enc.Rclunk(m.Tag())
}

func (c *conn) handleRemove(m wire.Tremove) error {
	f, ok := c.fids[m.Fid]
	if !ok {
		return c.enc.Rerror(m.Tag(), "unknown fid")
	}
	delete(c.fids, m.Fid)
	node := c.srv.Tree.Node(f.handle)
	node.Close("")
	return c.enc.Rremove(m.Tag())
}
