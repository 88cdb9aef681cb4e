package envelope

import "strconv"

// UnknownVariantTag is the discriminator assigned to legacy numeric kinds
// that are not present in the fixed table. The raw code is preserved as a
// suffix so forward-compatible consumers can still distinguish them.
const UnknownVariantTag = "UnknownVariant"

// legacyKinds is the fixed mapping from pre-stabilization numeric message
// kinds to discriminator strings. The table is part of the wire contract
// and must never be renumbered.
var legacyKinds = map[int]string{
	0:   "AsyncCallInfo",
	1:   "InternalError",
	2:   "InitFailed",
	3:   "ConnectionInfo",
	4:   "AllTasksCompleted",
	5:   "Destroyed",
	100: "TaskChainError",
	101: "TaskChainStart",
	102: "TaskChainCompleted",
	103: "TaskChainExtraInfo",
	104: "TaskChainStopped",
	200: "SubTaskError",
	201: "SubTaskStart",
	202: "SubTaskCompleted",
	203: "SubTaskExtraInfo",
	204: "SubTaskStopped",
}

// LegacyKind maps a numeric message kind to its discriminator string.
// Unknown codes map to UnknownVariantTag rather than failing, so older
// bridges keep working when the engine grows new kinds.
func LegacyKind(code int) string {
	if tag, ok := legacyKinds[code]; ok {
		return tag
	}
	return UnknownVariantTag + ":" + strconv.Itoa(code)
}

// IsLegacyKind reports whether code is present in the fixed table.
func IsLegacyKind(code int) bool {
	_, ok := legacyKinds[code]
	return ok
}
