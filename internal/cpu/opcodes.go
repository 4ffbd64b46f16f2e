package cpu

// Instruction opcodes, grounded on the original brain.h #define table.
const (
	OpSUM = iota
	OpRES
	OpMULT
	OpDIVI
	OpLOAD
	OpSTR
	OpLOADRX
	OpSTRRX
	OpCOMP
	OpJMPE
	OpJMPNE
	OpJMPLT
	OpJMPLGT
	OpSVC
	OpRETRN
	OpHAB
	OpDHAB
	OpTTI
	OpCHMOD
	OpLOADRB
	OpSTRRB
	OpLOADRL
	OpSTRRL
	OpLOADSP
	OpSTRSP
	OpPSH
	OpPOP
	OpJ
	OpSDMAP
	OpSDMAC
	OpSDMAS
	OpSDMAIO
	OpSDMAM
	OpSDMAON

	opcodeCount
)

var mnemonics = [opcodeCount]string{
	OpSUM: "SUM", OpRES: "RES", OpMULT: "MULT", OpDIVI: "DIVI",
	OpLOAD: "LOAD", OpSTR: "STR", OpLOADRX: "LOADRX", OpSTRRX: "STRRX",
	OpCOMP: "COMP", OpJMPE: "JMPE", OpJMPNE: "JMPNE", OpJMPLT: "JMPLT", OpJMPLGT: "JMPLGT",
	OpSVC: "SVC", OpRETRN: "RETRN", OpHAB: "HAB", OpDHAB: "DHAB", OpTTI: "TTI", OpCHMOD: "CHMOD",
	OpLOADRB: "LOADRB", OpSTRRB: "STRRB", OpLOADRL: "LOADRL", OpSTRRL: "STRRL",
	OpLOADSP: "LOADSP", OpSTRSP: "STRSP", OpPSH: "PSH", OpPOP: "POP", OpJ: "J",
	OpSDMAP: "SDMAP", OpSDMAC: "SDMAC", OpSDMAS: "SDMAS", OpSDMAIO: "SDMAIO",
	OpSDMAM: "SDMAM", OpSDMAON: "SDMAON",
}

// Mnemonic returns the instruction name for an opcode, or "???" if unknown.
func Mnemonic(opcode int) string {
	if opcode < 0 || opcode >= opcodeCount {
		return "???"
	}

	return mnemonics[opcode]
}
