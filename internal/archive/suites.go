package archive

import (
	"fmt"
	"slices"
)

// Distribution identifies the archive family a suite belongs to.
type Distribution int

const (
	DistributionUnknown Distribution = iota
	DistributionDebian
	DistributionUbuntu
)

// SourcesListFormat selects the sources-list dialect written into the
// target root.
type SourcesListFormat int

const (
	FormatDeb822 SourcesListFormat = iota
	FormatOneLine
)

// String implements fmt.Stringer.
func (f SourcesListFormat) String() string {
	if f == FormatOneLine {
		return "one-line-style"
	}
	return "deb822-style"
}

// UnrecognisedSuiteError indicates a suite that belongs to no known
// distribution.
type UnrecognisedSuiteError struct {
	Suite string
}

// Error implements the error interface.
func (e *UnrecognisedSuiteError) Error() string {
	return fmt.Sprintf("unrecognised suite %q", e.Suite)
}

// Default mirror locations. Obsolete suites have moved off the primary
// mirrors and are served from the archive hosts.
const (
	MirrorDebian        = "http://deb.debian.org/debian"
	MirrorDebianPorts   = "http://deb.debian.org/debian-ports"
	MirrorDebianArchive = "http://archive.debian.org/debian"
	MirrorUbuntu        = "http://archive.ubuntu.com/ubuntu"
	MirrorUbuntuPorts   = "http://ports.ubuntu.com/ubuntu-ports"
	MirrorUbuntuOld     = "http://old-releases.ubuntu.com/ubuntu"
)

// Keyring paths written into Signed-By fields of emitted sources lists.
const (
	keyringDebian      = "/usr/share/keyrings/debian-archive-keyring.gpg"
	keyringDebianPorts = "/usr/share/keyrings/debian-ports-archive-keyring.gpg"
	keyringUbuntu      = "/usr/share/keyrings/ubuntu-archive-keyring.gpg"
)

// debianCodenames lists Debian codenames in release order. The order is
// load-bearing: policy switches such as merged-/usr are expressed as
// "releases before X".
var debianCodenames = []string{
	"buzz", "rex", "bo", "hamm", "slink", "potato", "woody", "sarge",
	"etch", "lenny", "squeeze", "wheezy", "jessie", "stretch", "buster",
	"bullseye", "bookworm", "trixie", "forky", "duke",
}

// debianObsolete marks the boundary inside debianCodenames: everything up
// to and including this codename is served from the archive mirror.
const debianObsolete = "buster"

// debianAliases are rolling suite names served by the primary mirror.
var debianAliases = []string{
	"oldstable", "stable", "testing", "unstable", "sid", "experimental", "rc-buggy",
}

// ubuntuCodenames lists Ubuntu codenames in release order.
var ubuntuCodenames = []string{
	"warty", "hoary", "breezy", "dapper", "edgy", "feisty", "gutsy",
	"hardy", "intrepid", "jaunty", "karmic", "lucid", "maverick", "natty",
	"oneiric", "precise", "quantal", "raring", "saucy", "trusty", "utopic",
	"vivid", "wily", "xenial", "yakkety", "zesty", "artful", "bionic",
	"cosmic", "disco", "eoan", "focal", "groovy", "hirsute", "impish",
	"jammy", "kinetic", "lunar", "mantic", "noble", "oracular", "plucky",
	"questing", "resolute",
}

// ubuntuObsolete marks the boundary inside ubuntuCodenames: everything up
// to and including this codename is served from old-releases.
const ubuntuObsolete = "mantic"

// ubuntuAliases are rolling suite names served by the primary mirror.
var ubuntuAliases = []string{"devel"}

// transportHTTPSSuites ship an apt too old to speak https natively and need
// the apt-transport-https package alongside ca-certificates.
var transportHTTPSSuites = map[string]bool{
	"jessie":  true,
	"stretch": true,
	"trusty":  true,
	"xenial":  true,
}

// DistributionOf classifies a suite name.
func DistributionOf(suite string) Distribution {
	if slices.Contains(debianCodenames, suite) || slices.Contains(debianAliases, suite) {
		return DistributionDebian
	}
	if slices.Contains(ubuntuCodenames, suite) || slices.Contains(ubuntuAliases, suite) {
		return DistributionUbuntu
	}
	return DistributionUnknown
}

// IsPrimarySuite reports whether the suite may appear first in a sources
// entry.
func IsPrimarySuite(suite string) bool {
	return DistributionOf(suite) != DistributionUnknown
}

// releasedBefore reports whether suite is a codename released strictly
// before pivot within the given ordered codename list. Aliases and unknown
// names count as current.
func releasedBefore(codenames []string, suite, pivot string) bool {
	i := slices.Index(codenames, suite)
	j := slices.Index(codenames, pivot)
	if i < 0 || j < 0 {
		return false
	}
	return i < j
}

// isObsolete reports whether the suite has moved to an archive mirror.
func isObsolete(suite string) bool {
	switch DistributionOf(suite) {
	case DistributionDebian:
		i := slices.Index(debianCodenames, suite)
		return i >= 0 && i <= slices.Index(debianCodenames, debianObsolete)
	case DistributionUbuntu:
		i := slices.Index(ubuntuCodenames, suite)
		return i >= 0 && i <= slices.Index(ubuntuCodenames, ubuntuObsolete)
	}
	return false
}

// DefaultMirrors returns the mirror list for a suite and architecture:
// the archive mirror for obsolete suites, the ports mirror for
// non-mainstream architectures, the primary mirror otherwise.
func DefaultMirrors(suite, architecture string) ([]URI, error) {
	var raw string
	switch DistributionOf(suite) {
	case DistributionDebian:
		switch {
		case isObsolete(suite):
			raw = MirrorDebianArchive
		case !debianMainstream[architecture]:
			raw = MirrorDebianPorts
		default:
			raw = MirrorDebian
		}
	case DistributionUbuntu:
		switch {
		case isObsolete(suite):
			raw = MirrorUbuntuOld
		case !ubuntuMainstream[architecture]:
			raw = MirrorUbuntuPorts
		default:
			raw = MirrorUbuntu
		}
	default:
		return nil, &UnrecognisedSuiteError{Suite: suite}
	}

	uri, err := ParseURI(raw)
	if err != nil {
		return nil, err
	}
	return []URI{uri}, nil
}

// DefaultSourcesListFormat returns the dialect written for the suite:
// one-line for releases whose apt predates deb822 sources, deb822
// otherwise.
func DefaultSourcesListFormat(suite string) SourcesListFormat {
	switch DistributionOf(suite) {
	case DistributionDebian:
		if releasedBefore(debianCodenames, suite, "stretch") {
			return FormatOneLine
		}
	case DistributionUbuntu:
		if releasedBefore(ubuntuCodenames, suite, "xenial") {
			return FormatOneLine
		}
	}
	return FormatDeb822
}

// DefaultMergeUsr reports whether the suite defaults to the merged-/usr
// layout for the given variant label. Suites released before the merge
// stay split, and the buildd variant stays split on the transition
// releases to match their build daemons.
func DefaultMergeUsr(suite, variant string) bool {
	switch DistributionOf(suite) {
	case DistributionDebian:
		if releasedBefore(debianCodenames, suite, "stretch") {
			return false
		}
		if variant == "buildd" {
			switch suite {
			case "buster", "bullseye", "bookworm":
				return false
			}
		}
	case DistributionUbuntu:
		if releasedBefore(ubuntuCodenames, suite, "hirsute") {
			return false
		}
		if variant == "buildd" && suite == "hirsute" {
			return false
		}
	}
	return true
}

// IsSplitUsrSupported reports whether the suite still tolerates an
// unmerged layout.
func IsSplitUsrSupported(suite string) bool {
	switch DistributionOf(suite) {
	case DistributionDebian:
		return releasedBefore(debianCodenames, suite, "bookworm")
	case DistributionUbuntu:
		return releasedBefore(ubuntuCodenames, suite, "hirsute")
	}
	return false
}

// CaseSpecificPackages returns extra seed packages required by particular
// suite and variant combinations: ca-certificates for every variant that
// installs apt, plus apt-transport-https where apt cannot yet fetch over
// https on its own.
func CaseSpecificPackages(suite, variant string) []string {
	if variant == "essential" || variant == "custom" {
		return nil
	}
	packages := []string{"ca-certificates"}
	if transportHTTPSSuites[suite] {
		packages = append(packages, "apt-transport-https")
	}
	return packages
}

// KeyringPath returns the Signed-By keyring path for a suite and
// architecture.
func KeyringPath(suite, architecture string) string {
	switch DistributionOf(suite) {
	case DistributionUbuntu:
		return keyringUbuntu
	case DistributionDebian:
		if !debianMainstream[architecture] && !isObsolete(suite) {
			return keyringDebianPorts
		}
	}
	return keyringDebian
}
