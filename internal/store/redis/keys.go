package redis

const (
	// KeyPrefix namespaces every lbsync key
	KeyPrefix = "lbsync:"
	// KeyReconcileLock is held while a replica runs a pass
	KeyReconcileLock = KeyPrefix + "lock:reconcile"
	// KeyLastReport is the last finished pass, whichever replica ran it
	KeyLastReport = KeyPrefix + "report:last"
	// KeyOutcomes counts passes per outcome across replicas
	KeyOutcomes = KeyPrefix + "report:outcomes"
)
