// Package registry loads, validates and updates the canonical entity
// registry: the human-edited YAML file listing every canonical country or
// region name together with its code, type and known aliases.
//
// # File format
//
//	version: "1"
//	entities:
//	  # Comments are kept when aliases are written back.
//	  - name: South Korea
//	    code: KOR
//	    type: country
//	    aliases:
//	      - Republic of Korea
//	      - Korea, Rep.
//	  - name: USSR
//	    code: SUN
//	    type: historical
//	    aliases: Soviet Union   # a single alias may be a plain string
//
// # Writing aliases back
//
// AddAliases edits the document as a yaml.Node tree, so the rest of the
// file (comments, key order, quoting) survives the round trip. Only the
// aliases sequence of the targeted entity blocks changes.
package registry
