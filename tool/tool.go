package tool

import (
	"fmt"
	"reflect"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/skeinworks/skein/pkg/reflectx"
	"github.com/skeinworks/skein/pkg/stdx"
	"github.com/skeinworks/skein/types"
)

// Definition describes one function the model may call: its advertised name,
// a description for the model, the mapping from positional parameters to the
// argument names used in the JSON schema, and the Go function itself.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any
}

// Structured tool schemas use a constrained subset of JSON schema; inline
// definitions without $ref keep every model provider happy.
var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// ToNameAndSchema derives the advertised name and the input schema for the
// definition's function signature. Parameters typed as types.ContextVars are
// framework-injected and excluded from the schema.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	name := td.Name
	if name == "" {
		name = reflectx.FunctionName(td.Function)
	}

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}

	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return name, schema
	}

	var required []string
	position := 0
	for i := 0; i < typ.NumIn(); i++ {
		paramType := typ.In(i)
		if reflectx.IsRefinedType[types.ContextVars](paramType) {
			continue
		}

		paramName := fmt.Sprintf("param%d", position)
		if td.Parameters != nil {
			if p, ok := td.Parameters[paramName]; ok {
				paramName = p
			}
		}
		position++

		propSchema := reflector.ReflectFromType(paramType)
		propSchema.Version = ""
		schema.Properties.Set(paramName, propSchema)
		required = append(required, paramName)
	}
	if len(required) > 0 {
		schema.Required = required
	}

	return name, schema
}

// Option configures a Definition during construction.
type Option = opts.Option[Definition]

// Must is New with errors converted to panics, for package-level tool vars.
func Must(f any, options ...Option) Definition {
	return stdx.Must1(New(f, options...))
}

// New builds a Definition around f. The name defaults to the function's
// symbol name when not set through Name.
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}

	def.Function = f
	return def, nil
}

// Name overrides the advertised tool name.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the tool description shown to the model.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function's positional parameters in order; these
// names become the keys of the generated JSON schema.
func Parameters(parameters ...string) opts.Option[Definition] {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
