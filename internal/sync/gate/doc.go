// Package gate brackets operations on mode-gated data with restorable
// mode transitions.
//
// A Guard makes an owner object active, switches the document to the
// target mode, runs a body and puts the recorded selection and modes back
// on every exit path:
//
//	err := guard.With(owner, host.ModeEdit, func() error {
//		return p.LoadAttribute(db, "edit_bones")
//	})
//
// The gated mode is document wide. A Guard holds it for one owner at a
// time; a nested With for the same owner and mode runs its body directly,
// a nested With for another owner fails with ErrGuardBusy.
package gate
