package mapping

import "fmt"

type OriginKind int

const (
	OriginUnknown OriginKind = iota
	OriginFile
	OriginStruct
	OriginInput
)

func (k OriginKind) String() string {
	return [...]string{"unknown", "file", "struct", "input"}[k]
}

// Origin identifies where mapping metadata came from.
type Origin struct {
	Kind OriginKind
	Name string
}

func (o Origin) String() string {
	if o.Name == "" {
		return o.Kind.String()
	}

	return fmt.Sprintf("%s %s", o.Kind, o.Name)
}
