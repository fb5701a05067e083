// Package audit provides the durable alert and build log for buildseal.
//
// # Log Format
//
// The log is a single JSON document in the output directory:
//
//	quantum_memory.json
//	{
//	  "builds": [ {"id": "...", "status": "success", "hash": "...", ...} ],
//	  "alerts": [ {"timestamp": "...", "alert": "Unauthorized access attempt", "type": "security"} ]
//	}
//
// Every alert also overwrites tamper_alert.txt with a single line,
//
//	[ALERT] <message> at <timestamp>
//
// which survives even if the JSON document is deleted or damaged.
//
// # Durability and Concurrency
//
// Mutations hold an exclusive advisory lock on quantum_memory.json.lock
// (flock on Unix, LockFileEx on Windows) for the whole read-modify-write.
// The new document is written to a temp file, synced and renamed into
// place. Two processes appending at the same time therefore both land.
//
// # Failure Handling
//
// A document that exists but does not parse is never overwritten:
// every operation returns errors.ErrCorruptedLog instead. A missing
// document is created lazily on first use, or eagerly by
// EnsureInitialized.
package audit
