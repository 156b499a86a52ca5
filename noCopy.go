package chashmap

// noCopy may be embedded in structs which must not be copied after first
// use. It is detected by `go vet`'s -copylocks checker.
//
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
