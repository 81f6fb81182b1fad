package archive

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// UnrecognisedArchitectureError indicates a machine or architecture name
// with no Debian equivalent.
type UnrecognisedArchitectureError struct {
	Architecture string
}

// Error implements the error interface.
func (e *UnrecognisedArchitectureError) Error() string {
	return fmt.Sprintf("unrecognised architecture %q", e.Architecture)
}

// debianArchitectures are the Debian names accepted as-is.
var debianArchitectures = map[string]bool{
	"alpha":      true,
	"amd64":      true,
	"arm64":      true,
	"armel":      true,
	"armhf":      true,
	"hppa":       true,
	"hurd-amd64": true,
	"hurd-i386":  true,
	"i386":       true,
	"ia64":       true,
	"loong64":    true,
	"m68k":       true,
	"mips64el":   true,
	"mipsel":     true,
	"powerpc":    true,
	"ppc64":      true,
	"ppc64el":    true,
	"riscv64":    true,
	"s390x":      true,
	"sh4":        true,
	"sparc64":    true,
	"x32":        true,
}

// machineArchitectures maps uname machine names to Debian names.
var machineArchitectures = map[string]string{
	"aarch64":     "arm64",
	"armv5tel":    "armel",
	"armv6l":      "armel",
	"armv7l":      "armhf",
	"armv8l":      "armhf",
	"i486":        "i386",
	"i586":        "i386",
	"i686":        "i386",
	"loongarch64": "loong64",
	"mips64":      "mips64el",
	"mips":        "mipsel",
	"parisc":      "hppa",
	"ppc":         "powerpc",
	"ppc64le":     "ppc64el",
	"sh4a":        "sh4",
	"x86_64":      "amd64",
}

// debianMainstream are the architectures served by the main Debian mirror;
// everything else lives on the ports mirror.
var debianMainstream = map[string]bool{
	"amd64":    true,
	"arm64":    true,
	"armel":    true,
	"armhf":    true,
	"i386":     true,
	"mips64el": true,
	"mipsel":   true,
	"ppc64el":  true,
	"s390x":    true,
}

// ubuntuMainstream are the architectures served by archive.ubuntu.com;
// everything else lives on ports.ubuntu.com.
var ubuntuMainstream = map[string]bool{
	"amd64": true,
	"i386":  true,
}

// DebianArchitectureName translates a machine name reported by uname into
// the Debian architecture name. Names that already are Debian architectures
// pass through unchanged.
func DebianArchitectureName(name string) (string, error) {
	if debianArchitectures[name] {
		return name, nil
	}
	if debian, ok := machineArchitectures[name]; ok {
		return debian, nil
	}
	return "", &UnrecognisedArchitectureError{Architecture: name}
}

// HostMachine returns the raw machine name of the running kernel.
func HostMachine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}

// HostArchitecture returns the Debian architecture name of the host.
func HostArchitecture() (string, error) {
	machine, err := HostMachine()
	if err != nil {
		return "", err
	}
	return DebianArchitectureName(machine)
}
