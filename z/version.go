package z

import (
	"fmt"
	"strconv"
)

// HostSystem is the upper byte of the "version made by" field, identifying the system that produced the entry.
//
// It determines how ExternalAttrs should be interpreted.
type HostSystem uint8

const (
	MsDos        HostSystem = 0
	Amiga        HostSystem = 1
	OpenVms      HostSystem = 2
	Unix         HostSystem = 3
	VmCms        HostSystem = 4
	AtariSt      HostSystem = 5
	Os2Hpfs      HostSystem = 6
	Macintosh    HostSystem = 7
	ZSystem      HostSystem = 8
	CpM          HostSystem = 9
	WindowsNtfs  HostSystem = 10
	Mvs          HostSystem = 11
	Vse          HostSystem = 12
	AcornRisc    HostSystem = 13
	Vfat         HostSystem = 14
	AlternateMvs HostSystem = 15
	BeOs         HostSystem = 16
	Tandem       HostSystem = 17
	Os400        HostSystem = 18
	Osx          HostSystem = 19
)

var hostNames = [...]string{
	"MS-DOS", "Amiga", "OpenVMS", "Unix", "VM/CMS", "Atari ST", "OS/2 HPFS", "Macintosh", "Z-System", "CP/M",
	"Windows NTFS", "MVS", "VSE", "Acorn RISC", "VFAT", "Alternate MVS", "BeOS", "Tandem", "OS/400", "OS X",
}

func (h HostSystem) String() string {
	if int(h) < len(hostNames) {
		return hostNames[h]
	}

	return "Unknown(" + strconv.Itoa(int(h)) + ")"
}

// Version is a decoded "version made by" or "version needed to extract" field.
type Version struct {
	Host  HostSystem
	Major uint8
	Minor uint8
}

// ParseVersion decodes the raw 16-bit version field.
//
// The low byte is the ZIP specification version times 10 (e.g. 63 means 6.3), the high byte is the host system.
func ParseVersion(v uint16) Version {
	spec := uint8(v & 0xff)
	return Version{
		Host:  HostSystem(v >> 8),
		Major: spec / 10,
		Minor: spec % 10,
	}
}

// Raw re-encodes the version into its 16-bit form.
func (v Version) Raw() uint16 {
	return uint16(v.Host)<<8 | uint16(v.Major*10+v.Minor)
}

func (v Version) String() string {
	return fmt.Sprintf("%s v%d.%d", v.Host, v.Major, v.Minor)
}
