// Package manifest loads target declarations from HCL files and applies them
// to an engine.
//
// A manifest holds literal values only. Command strings are kept as raw
// template text and rendered by the engine at bind time:
//
//	default = ["app"]
//
//	target "app" {
//	  depends_on = ["util.o", "main.o"]
//	  variables  = { LIBS = ["-lm"] }
//
//	  recipe {
//	    name    = "link"
//	    command = "cc -o ${target} ${join(" ", sources)} ${LIBS}"
//	  }
//	}
package manifest
