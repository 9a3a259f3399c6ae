package model

// Task defines a single, self-contained extraction policy (bucketed series,
// exact flow counts, ...). Tasks are fed every record of one trace and then
// write their results into the bundle.
type Task interface {
	ProcessPacket(record *PacketRecord)
	Fill(bundle *ActivityBundle)
	Reset()
	Name() string
}
