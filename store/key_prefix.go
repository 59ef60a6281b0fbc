package store

// Declare database key prefix for objects
const (
	PrefixHeader     = "hdr:"
	PrefixHeaderMeta = "hdr_meta:"

	HeaderMetaKeyChainHead = "chain_head"
)
