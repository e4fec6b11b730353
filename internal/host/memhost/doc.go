// Package memhost provides an in-memory host document.
//
// It backs the tests and the rigsync CLI. Armatures expose their bone
// hierarchy as the gated attribute "edit_bones": it can only be read or
// written while an object referencing the armature is active in EDIT mode,
// and only one object may be in EDIT mode at a time.
//
// Scenes can be loaded from and written to YAML:
//
//	active: Rig
//	armatures:
//	  - name: Armature
//	    attributes:
//	      display_type: OCTAHEDRAL
//	    edit_bones:
//	      - {name: root, head: [0, 0, 0], tail: [0, 0, 1]}
//	objects:
//	  - name: Rig
//	    data: Armature
package memhost
