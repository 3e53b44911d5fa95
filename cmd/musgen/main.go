package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/poiesic/wayfind/core"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// If we're in the core subpackage, cd up to project root
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/wayfind/core"),
	)
	if err != nil {
		panic(err)
	}

	if err := g.AddDefinedType(reflect.TypeFor[core.Status]()); err != nil {
		panic(err)
	}
	if err := g.AddDefinedType(reflect.TypeFor[core.Fingerprint]()); err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Position](),
		structops.WithField(),
		structops.WithField())
	if err != nil {
		panic(err)
	}

	// Field order is part of the on-disk format; append new fields at the end.
	err = g.AddStruct(reflect.TypeFor[core.Utility](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField())
	if err != nil {
		panic(err)
	}

	// Unix micro timestamps, decoded as UTC
	opts := typeops.WithTimeUnit(typeops.MicroUTC)
	err = g.AddStruct(reflect.TypeFor[core.Report](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(opts))
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Checkpoint](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(opts))
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	err = os.WriteFile("./core/records_mus.gen.go", bs, 0644)
	if err != nil {
		panic(err)
	}
}
