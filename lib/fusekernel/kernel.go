// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusekernel

// Protocol version constants.
const (
	// KernelVersion is the FUSE major version burrow speaks.
	KernelVersion = 7

	// KernelMinorVersion is the highest minor version burrow
	// advertises during INIT. The negotiated minor is
	// min(KernelMinorVersion, kernel's minor).
	KernelMinorVersion = 31

	// MinMinorVersion is the lowest kernel minor version the channel
	// accepts. Older kernels use incompatible compat struct layouts.
	MinMinorVersion = 12
)

// RootID is the node id of the filesystem root.
const RootID = 1

// MinReadBuffer is the kernel's FUSE_MIN_READ_BUFFER: the smallest
// buffer a read on the device may supply.
const MinReadBuffer = 8192

// Capability flags negotiated in InitIn.Flags / InitOut.Flags.
const (
	CapAsyncRead         uint32 = 1 << 0
	CapPosixLocks        uint32 = 1 << 1
	CapFileOps           uint32 = 1 << 2
	CapAtomicOTrunc      uint32 = 1 << 3
	CapExportSupport     uint32 = 1 << 4
	CapBigWrites         uint32 = 1 << 5
	CapDontMask          uint32 = 1 << 6
	CapSpliceWrite       uint32 = 1 << 7
	CapSpliceMove        uint32 = 1 << 8
	CapSpliceRead        uint32 = 1 << 9
	CapFlockLocks        uint32 = 1 << 10
	CapIoctlDir          uint32 = 1 << 11
	CapAutoInvalData     uint32 = 1 << 12
	CapReaddirplus       uint32 = 1 << 13
	CapReaddirplusAuto   uint32 = 1 << 14
	CapAsyncDIO          uint32 = 1 << 15
	CapWritebackCache    uint32 = 1 << 16
	CapNoOpenSupport     uint32 = 1 << 17
	CapParallelDirops    uint32 = 1 << 18
	CapHandleKillpriv    uint32 = 1 << 19
	CapPosixACL          uint32 = 1 << 20
	CapAbortError        uint32 = 1 << 21
	CapMaxPages          uint32 = 1 << 22
	CapCacheSymlinks     uint32 = 1 << 23
	CapNoOpendirSupport  uint32 = 1 << 24
	CapExplicitInvalData uint32 = 1 << 25
)

// InHeader prefixes every kernel request. 40 bytes on the wire.
type InHeader struct {
	Len     uint32
	Opcode  Opcode
	Unique  uint64
	NodeID  uint64
	UID     uint32
	GID     uint32
	PID     uint32
	Padding uint32
}

// OutHeader prefixes every reply. 16 bytes on the wire. Status is 0
// on success or a negated POSIX error code.
type OutHeader struct {
	Len    uint32
	Status int32
	Unique uint64
}

// Attr is the wire form of an inode's attributes (protocol 7.9+
// layout, 88 bytes).
type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Nlink     uint32
	UID       uint32
	GID       uint32
	Rdev      uint32
	Blksize   uint32
	Padding   uint32
}

// Kstatfs is the payload of a STATFS reply.
type Kstatfs struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	NameLen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

// InitIn is the INIT request payload. Kernels at protocol 7.36+
// send a longer record; the channel reads only this prefix.
type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

// InitOut is the INIT reply payload (64 bytes, protocol 7.23+
// layout).
type InitOut struct {
	Major               uint32
	Minor               uint32
	MaxReadahead        uint32
	Flags               uint32
	MaxBackground       uint16
	CongestionThreshold uint16
	MaxWrite            uint32
	TimeGran            uint32
	MaxPages            uint16
	MapAlignment        uint16
	Unused              [8]uint32
}

// EntryOut is the reply payload for LOOKUP and the directory-entry
// half of CREATE.
type EntryOut struct {
	NodeID         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

// ForgetIn is the FORGET request payload.
type ForgetIn struct {
	Nlookup uint64
}

// ForgetOne is one entry of a BATCH_FORGET request.
type ForgetOne struct {
	NodeID  uint64
	Nlookup uint64
}

// BatchForgetIn is the fixed prefix of a BATCH_FORGET request,
// followed by Count ForgetOne records.
type BatchForgetIn struct {
	Count uint32
	Dummy uint32
}

// GetattrIn is the GETATTR request payload (protocol 7.9+).
type GetattrIn struct {
	GetattrFlags uint32
	Dummy        uint32
	Fh           uint64
}

// AttrOut is the reply payload for GETATTR and SETATTR.
type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Dummy         uint32
	Attr          Attr
}

// SetattrIn is the SETATTR request payload. Valid is a bitmask of
// the SetattrValid* constants selecting which fields apply.
type SetattrIn struct {
	Valid     uint32
	Padding   uint32
	Fh        uint64
	Size      uint64
	LockOwner uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Unused4   uint32
	UID       uint32
	GID       uint32
	Unused5   uint32
}

// SetattrIn.Valid bits.
const (
	SetattrValidMode      uint32 = 1 << 0
	SetattrValidUID       uint32 = 1 << 1
	SetattrValidGID       uint32 = 1 << 2
	SetattrValidSize      uint32 = 1 << 3
	SetattrValidAtime     uint32 = 1 << 4
	SetattrValidMtime     uint32 = 1 << 5
	SetattrValidFh        uint32 = 1 << 6
	SetattrValidAtimeNow  uint32 = 1 << 7
	SetattrValidMtimeNow  uint32 = 1 << 8
	SetattrValidLockOwner uint32 = 1 << 9
	SetattrValidCtime     uint32 = 1 << 10
)

// MknodIn is the fixed prefix of a MKNOD request, followed by the
// NUL-terminated name.
type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
}

// MkdirIn is the fixed prefix of a MKDIR request, followed by the
// NUL-terminated name.
type MkdirIn struct {
	Mode  uint32
	Umask uint32
}

// RenameIn is the fixed prefix of a RENAME request, followed by the
// two NUL-terminated names.
type RenameIn struct {
	Newdir uint64
}

// LinkIn is the fixed prefix of a LINK request, followed by the
// NUL-terminated name.
type LinkIn struct {
	Oldnodeid uint64
}

// OpenIn is the OPEN and OPENDIR request payload.
type OpenIn struct {
	Flags     uint32
	OpenFlags uint32
}

// OpenOut is the OPEN and OPENDIR reply payload.
type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

// OpenOut.OpenFlags bits.
const (
	OpenDirectIO    uint32 = 1 << 0
	OpenKeepCache   uint32 = 1 << 1
	OpenNonseekable uint32 = 1 << 2
	OpenCacheDir    uint32 = 1 << 3
)

// ReadIn is the READ and READDIR request payload (protocol 7.9+).
type ReadIn struct {
	Fh        uint64
	Offset    uint64
	Size      uint32
	ReadFlags uint32
	LockOwner uint64
	Flags     uint32
	Padding   uint32
}

// WriteIn is the fixed prefix of a WRITE request (protocol 7.9+),
// followed by Size bytes of data.
type WriteIn struct {
	Fh         uint64
	Offset     uint64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      uint32
	Padding    uint32
}

// WriteOut is the WRITE reply payload.
type WriteOut struct {
	Size    uint32
	Padding uint32
}

// ReleaseIn is the RELEASE and RELEASEDIR request payload.
type ReleaseIn struct {
	Fh           uint64
	Flags        uint32
	ReleaseFlags uint32
	LockOwner    uint64
}

// FsyncIn is the FSYNC and FSYNCDIR request payload.
type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

// FlushIn is the FLUSH request payload.
type FlushIn struct {
	Fh        uint64
	Unused    uint32
	Padding   uint32
	LockOwner uint64
}

// SetxattrIn is the fixed prefix of a SETXATTR request, followed by
// the NUL-terminated name and Size bytes of value.
type SetxattrIn struct {
	Size  uint32
	Flags uint32
}

// GetxattrIn is the fixed prefix of a GETXATTR or LISTXATTR request.
// For GETXATTR it is followed by the NUL-terminated name.
type GetxattrIn struct {
	Size    uint32
	Padding uint32
}

// GetxattrOut is the reply payload for a size-probing GETXATTR or
// LISTXATTR (request Size == 0).
type GetxattrOut struct {
	Size    uint32
	Padding uint32
}

// AccessIn is the ACCESS request payload.
type AccessIn struct {
	Mask    uint32
	Padding uint32
}

// CreateIn is the fixed prefix of a CREATE request, followed by the
// NUL-terminated name.
type CreateIn struct {
	Flags   uint32
	Mode    uint32
	Umask   uint32
	Padding uint32
}

// InterruptIn is the INTERRUPT request payload: the unique id of the
// request being cancelled.
type InterruptIn struct {
	Unique uint64
}

// BmapIn is the BMAP request payload.
type BmapIn struct {
	Block     uint64
	BlockSize uint32
	Padding   uint32
}

// BmapOut is the BMAP reply payload.
type BmapOut struct {
	Block uint64
}

// StatfsOut is the STATFS reply payload.
type StatfsOut struct {
	St Kstatfs
}

// Dirent is the fixed prefix of one READDIR entry, followed by the
// name padded to an 8-byte boundary.
type Dirent struct {
	Ino     uint64
	Off     uint64
	NameLen uint32
	Type    uint32
}

// NotifyInvalInodeOut is the payload of an INVAL_INODE notification.
type NotifyInvalInodeOut struct {
	Ino    uint64
	Off    int64
	Length int64
}

// NotifyInvalEntryOut is the fixed prefix of an INVAL_ENTRY
// notification, followed by the NUL-terminated entry name.
type NotifyInvalEntryOut struct {
	Parent  uint64
	NameLen uint32
	Padding uint32
}
