// SPDX-License-Identifier: MIT

package frames

import "fmt"

// Name returns the canonical frame filename for an ordinal: the ordinal
// zero-padded to pad digits, followed by the suffix ("00042.png").
func Name(ordinal int, suffix string, pad int) string {
	return fmt.Sprintf("%0*d%s", pad, ordinal, suffix)
}

// Pattern returns the printf-style filename pattern matching Name, as
// consumed by encoder tools for numbered-file input ("%05d.png").
func Pattern(suffix string, pad int) string {
	return fmt.Sprintf("%%0%dd%s", pad, suffix)
}

// OutputName maps an input frame filename to its swapped output filename
// by swapping the configured suffixes. The caller guarantees name carries
// suffixIn.
func OutputName(name, suffixIn, suffixOut string) string {
	return name[:len(name)-len(suffixIn)] + suffixOut
}
