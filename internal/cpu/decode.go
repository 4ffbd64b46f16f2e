package cpu

// Addressing modes.
const (
	AddrDirect    = 0
	AddrImmediate = 1
	AddrIndexed   = 2
)

// Decoded is the result of splitting a fetched word into its fields, per the
// encoding in the data model: the top two digits are the opcode, the next
// digit the addressing mode, the bottom five digits the operand.
type Decoded struct {
	Opcode  int
	Mode    int
	Operand int
}

func decode(word int) Decoded {
	return Decoded{
		Opcode:  word / 1_000_000,
		Mode:    (word / 100_000) % 10,
		Operand: word % 100_000,
	}
}
