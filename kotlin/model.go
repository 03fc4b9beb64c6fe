package kotlin

// Class is one generated Kotlin type: a data class, an enum class, or a
// sealed class with subtypes.
type Class struct {
	Name        string
	Package     string
	Description string
	Imports     []string
	// Annotations are class-level annotations, rendered above the declaration.
	Annotations []string

	Properties []PropertyDecl

	// EnumValues turns the class into an enum class.
	EnumValues []EnumEntry

	// Sealed classes carry their subtypes and the discriminator wiring for
	// Jackson polymorphic deserialization.
	Sealed                bool
	SubTypes              []Class
	DiscriminatorProperty string
	SubTypeMappings       []SubTypeMapping

	// Parent is set on sealed subtypes.
	Parent string
}

// EnumEntry is one enum constant and its wire value.
type EnumEntry struct {
	Name  string
	Value string
}

// SubTypeMapping links a discriminator value to a subtype class.
type SubTypeMapping struct {
	Value     string
	ClassName string
}

// PropertyDecl is one constructor property of a data class.
type PropertyDecl struct {
	Name        string
	Type        string
	Nullable    bool
	Default     string
	Description string
	Validation  []string
	// JSONName is set when the Kotlin name differs from the wire name.
	JSONName string
}

// Controller is one generated Spring controller interface, grouping the
// operations of a single tag.
type Controller struct {
	Name        string
	Package     string
	Description string
	Imports     []string
	Methods     []Method
}

// Method is one HTTP operation.
type Method struct {
	Name        string
	HTTPMethod  string
	Path        string
	Summary     string
	Description string
	// Annotations are extra method annotations beyond the mapping one.
	Annotations []string
	Parameters  []Parameter
	RequestBody *Parameter
	ReturnType  string
}

// ParamKind is where a method parameter binds from.
type ParamKind int

const (
	ParamPath ParamKind = iota
	ParamQuery
	ParamHeader
	ParamBody
)

// Parameter is one method parameter.
type Parameter struct {
	Name       string
	WireName   string
	Type       string
	Kind       ParamKind
	Required   bool
	Validation []string
}
