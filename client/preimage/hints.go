package preimage

// Hint type vocabulary (spec §4.2). Hints are free-form "<type> <hex
// payload>" strings; the program must still verify every returned preimage,
// so an unrecognized or stale hint can only slow a lookup, never corrupt it.
const (
	HintL1BlockHeader     = "l1-block-header"
	HintL1Transactions    = "l1-transactions"
	HintL1Receipts        = "l1-receipts"
	HintL1Blob            = "l1-blob"
	HintL1Precompile      = "l1-precompile"
	HintL2BlockHeader     = "l2-block-header"
	HintL2Transactions    = "l2-transactions"
	HintL2Code            = "l2-code"
	HintL2StateNode       = "l2-state-node"
	HintL2Output          = "l2-output"
	HintL2PayloadWitness  = "l2-payload-witness"
	HintStartingL2Output  = "starting-l2-output"
)

// File descriptors used by the FPVM target (spec §6). Outside that target
// these are explicit constructor parameters, never global state (spec §9).
const (
	FDStdin         = 0
	FDStdout        = 1
	FDStderr        = 2
	FDHintRead      = 3
	FDHintWrite     = 4
	FDPreimageRead  = 5
	FDPreimageWrite = 6
)

// Local-key index convention for the boot record (spec §6).
const (
	LocalIndexL1Head               = 1
	LocalIndexAgreedL2OutputRoot   = 2
	LocalIndexClaimedL2OutputRoot  = 3
	LocalIndexClaimedL2BlockNumber = 4
	LocalIndexL2ChainID            = 5
)
