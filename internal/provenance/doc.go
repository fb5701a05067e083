// Package provenance writes and reads the human-readable record that binds
// an owner and a timestamp to an integrity digest.
//
// Two files are written to the output directory on every successful build,
// each overwriting the previous run:
//
//	project_hash.txt
//	Author: Jane Doe
//	Timestamp: 2024-03-01T12:30:45.123456Z
//	SHA256: 2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824
//
//	LICENSE.txt
//	This software is protected by international copyright law.
//	Created by Jane Doe
//
// The record is an attribution, not a signature.
package provenance
