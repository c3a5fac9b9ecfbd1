package mapping

// toOneSource holds what key-many-to-one and many-to-one share: how the
// fetch strategy is derived from the lazy, fetch and outer-join attributes.
type toOneSource struct {
	document               *DocumentSource
	naturalIDMutability    NaturalIDMutability
	propertyRef            string
	requiresImmediateFetch bool
	fetchSelection         string
	lazySelection          string
	outerJoinSelection     string
}

func (t *toOneSource) NaturalIDMutability() NaturalIDMutability {
	return t.naturalIDMutability
}

func (t *toOneSource) ReferencedEntityAttributeName() string {
	return t.propertyRef
}

func (t *toOneSource) FetchStyle() FetchStyle {
	switch t.fetchSelection {
	case "join":
		return FetchJoin
	case "select":
		return FetchSelect
	}

	if t.outerJoinSelection == "true" {
		return FetchJoin
	}

	return FetchSelect
}

func (t *toOneSource) FetchTiming() FetchTiming {
	if t.requiresImmediateFetch || t.FetchStyle() == FetchJoin {
		return FetchImmediate
	}

	switch t.lazySelection {
	case "false":
		return FetchImmediate
	case "proxy", "no-proxy":
		return FetchDelayed
	}

	if t.document.DefaultLazy() {
		return FetchDelayed
	}

	return FetchImmediate
}

func (t *toOneSource) IsUnwrapProxy() bool {
	return t.lazySelection == "no-proxy"
}

// LazySelection is the raw lazy attribute, empty when absent.
func (t *toOneSource) LazySelection() string {
	return t.lazySelection
}

func validLazy(value string) bool {
	switch value {
	case "", "false", "proxy", "no-proxy":
		return true
	}

	return false
}
