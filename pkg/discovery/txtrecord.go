package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for a gate announcement.
func EncodeTXT(info *Info) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyFingerprint] = info.Fingerprint

	// Optional fields
	if info.TLSVersion != "" {
		txt[TXTKeyTLSVersion] = info.TLSVersion
	}
	if info.ClientAuth != "" {
		txt[TXTKeyClientAuth] = info.ClientAuth
	}

	return txt
}

// DecodeTXT parses TXT records from a discovered gate announcement.
// Only TXT-borne fields are filled; instance name and port ride on the
// mDNS entry itself.
func DecodeTXT(txt TXTRecordMap) (*Info, error) {
	info := &Info{}

	// Parse fingerprint (required)
	fp, ok := txt[TXTKeyFingerprint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyFingerprint)
	}
	if !ValidateFingerprint(fp) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFingerprint, fp)
	}
	info.Fingerprint = fp

	// Optional fields
	info.TLSVersion = txt[TXTKeyTLSVersion]
	info.ClientAuth = txt[TXTKeyClientAuth]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format mDNS libraries expect.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}
