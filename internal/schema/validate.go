package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// definitionsSchema is the structural contract for a definitions file.
// Identifiers are restricted to the charset the namespace prefix allows.
const definitionsSchema = `
#Ident: =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Field: {
	name:         #Ident
	type:         #Ident
	length?:      int & >0
	not_null?:    bool
	primary_key?: bool
	unique?:      bool
	default?:     _
}

#ForeignKey: {
	field:       #Ident
	table:       #Ident
	table_field: #Ident
}

#Definition: {
	table:        #Ident
	type:         "table" | "index"
	name?:        #Ident
	tableFields?: [...#Field]
	foreignKeys?: [...#ForeignKey]
	indexOn?:     #Ident | [...#Ident]
	unique?:      bool
}

#Definitions: [#Definition, ...#Definition]
`

// Validate checks a definitions document against the CUE schema before it
// is installed. It reports structural problems only; CreateTables still
// enforces the table type at install time.
func Validate(data []byte, format string) error {
	doc, err := toJSON(data, format)
	if err != nil {
		return err
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(definitionsSchema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile definitions schema: %w", err)
	}

	docVal := ctx.CompileBytes(doc)
	if err := docVal.Err(); err != nil {
		return fmt.Errorf("parse definitions: %w", err)
	}

	unified := schemaVal.LookupPath(cue.ParsePath("#Definitions")).Unify(docVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid definitions: %w", err)
	}
	return nil
}
