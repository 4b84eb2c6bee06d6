package common

// Column names of a container table.
const (
	ColID        = "ID_HASH"
	ColValueHash = "VALUE_HASH"

	ColKeyString   = "KEY_TO_STRING"
	ColValueString = "VALUE_TO_STRING"

	ColKeyType   = "KEY_TYPE"
	ColValueType = "VALUE_TYPE"

	ColKey        = "KEY"
	ColIntKey     = "KEY_INT"
	ColLongKey    = "KEY_LONG"
	ColFloatKey   = "KEY_FLOAT"
	ColDoubleKey  = "KEY_DOUBLE"
	ColByteKey    = "KEY_BYTE"
	ColCharKey    = "KEY_CHAR"
	ColBooleanKey = "KEY_BOOLEAN"
	ColStringKey  = "KEY_STRING"

	ColValue        = "VALUE"
	ColIntValue     = "VALUE_INT"
	ColLongValue    = "VALUE_LONG"
	ColFloatValue   = "VALUE_FLOAT"
	ColDoubleValue  = "VALUE_DOUBLE"
	ColByteValue    = "VALUE_BYTE"
	ColCharValue    = "VALUE_CHAR"
	ColBooleanValue = "VALUE_BOOLEAN"
	ColStringValue  = "VALUE_STRING"
)

// KeyColumns lists every key payload column, the generic one first.
var KeyColumns = []string{
	ColKey, ColIntKey, ColLongKey, ColFloatKey, ColDoubleKey,
	ColByteKey, ColCharKey, ColBooleanKey, ColStringKey,
}

// ValueColumns lists every value payload column, the generic one first.
var ValueColumns = []string{
	ColValue, ColIntValue, ColLongValue, ColFloatValue, ColDoubleValue,
	ColByteValue, ColCharValue, ColBooleanValue, ColStringValue,
}
