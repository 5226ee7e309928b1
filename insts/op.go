package insts

// Op identifies the operation of a decoded instruction. Tags are shared by
// all families so one handler table per core can be indexed directly.
type Op uint16

// Operations.
const (
	OpUndefined Op = iota

	// ARM data processing, in opcode field order.
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN

	OpMRS
	OpMSR
	OpMUL
	OpMLA
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpSWP
	OpLDR
	OpSTR
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDRD
	OpSTRD
	OpLDM
	OpSTM
	OpB
	OpBL
	OpBX
	OpBLXReg
	OpBLXImm
	OpCLZ
	OpSWI
	OpBKPT
	OpMRC
	OpMCR
	OpPLD

	// Thumb.
	OpThumbLSLImm
	OpThumbLSRImm
	OpThumbASRImm
	OpThumbADDReg
	OpThumbSUBReg
	OpThumbADDImm3
	OpThumbSUBImm3
	OpThumbMOVImm
	OpThumbCMPImm
	OpThumbADDImm8
	OpThumbSUBImm8

	// Thumb ALU operations, in opcode field order.
	OpThumbAND
	OpThumbEOR
	OpThumbLSL
	OpThumbLSR
	OpThumbASR
	OpThumbADC
	OpThumbSBC
	OpThumbROR
	OpThumbTST
	OpThumbNEG
	OpThumbCMP
	OpThumbCMN
	OpThumbORR
	OpThumbMUL
	OpThumbBIC
	OpThumbMVN

	OpThumbADDHi
	OpThumbCMPHi
	OpThumbMOVHi
	OpThumbBX
	OpThumbBLX
	OpThumbLDRPC
	OpThumbSTRReg
	OpThumbSTRBReg
	OpThumbLDRReg
	OpThumbLDRBReg
	OpThumbSTRHReg
	OpThumbLDRSBReg
	OpThumbLDRHReg
	OpThumbLDRSHReg
	OpThumbSTRImm
	OpThumbLDRImm
	OpThumbSTRBImm
	OpThumbLDRBImm
	OpThumbSTRHImm
	OpThumbLDRHImm
	OpThumbSTRSP
	OpThumbLDRSP
	OpThumbADDPC
	OpThumbADDSP
	OpThumbADJSP
	OpThumbPUSH
	OpThumbPOP
	OpThumbSTMIA
	OpThumbLDMIA
	OpThumbBCond
	OpThumbSWI
	OpThumbB
	OpThumbBLPrefix
	OpThumbBLSuffix
	OpThumbBLXSuffix
	OpThumbBKPT

	// RISC-V.
	OpRVLUI
	OpRVAUIPC
	OpRVJAL
	OpRVJALR
	OpRVBEQ
	OpRVBNE
	OpRVBLT
	OpRVBGE
	OpRVBLTU
	OpRVBGEU
	OpRVLB
	OpRVLH
	OpRVLW
	OpRVLD
	OpRVLBU
	OpRVLHU
	OpRVLWU
	OpRVSB
	OpRVSH
	OpRVSW
	OpRVSD
	OpRVADDI
	OpRVSLTI
	OpRVSLTIU
	OpRVXORI
	OpRVORI
	OpRVANDI
	OpRVSLLI
	OpRVSRLI
	OpRVSRAI
	OpRVADD
	OpRVSUB
	OpRVSLL
	OpRVSLT
	OpRVSLTU
	OpRVXOR
	OpRVSRL
	OpRVSRA
	OpRVOR
	OpRVAND
	OpRVADDIW
	OpRVSLLIW
	OpRVSRLIW
	OpRVSRAIW
	OpRVADDW
	OpRVSUBW
	OpRVSLLW
	OpRVSRLW
	OpRVSRAW
	OpRVMUL
	OpRVMULH
	OpRVMULHSU
	OpRVMULHU
	OpRVDIV
	OpRVDIVU
	OpRVREM
	OpRVREMU
	OpRVMULW
	OpRVDIVW
	OpRVDIVUW
	OpRVREMW
	OpRVREMUW
	OpRVLR
	OpRVSC
	OpRVAMOSWAP
	OpRVAMOADD
	OpRVAMOXOR
	OpRVAMOAND
	OpRVAMOOR
	OpRVAMOMIN
	OpRVAMOMAX
	OpRVAMOMINU
	OpRVAMOMAXU
	OpRVFENCE
	OpRVFENCEI
	OpRVECALL
	OpRVEBREAK
	OpRVMRET
	OpRVSRET
	OpRVWFI
	OpRVSFENCEVMA
	OpRVCSRRW
	OpRVCSRRS
	OpRVCSRRC
	OpRVCSRRWI
	OpRVCSRRSI
	OpRVCSRRCI

	NumOps
)

var opNames = [NumOps]string{
	OpUndefined: "undefined",

	OpAND: "and", OpEOR: "eor", OpSUB: "sub", OpRSB: "rsb",
	OpADD: "add", OpADC: "adc", OpSBC: "sbc", OpRSC: "rsc",
	OpTST: "tst", OpTEQ: "teq", OpCMP: "cmp", OpCMN: "cmn",
	OpORR: "orr", OpMOV: "mov", OpBIC: "bic", OpMVN: "mvn",

	OpMRS: "mrs", OpMSR: "msr", OpMUL: "mul", OpMLA: "mla",
	OpUMULL: "umull", OpUMLAL: "umlal", OpSMULL: "smull", OpSMLAL: "smlal",
	OpSWP: "swp", OpLDR: "ldr", OpSTR: "str",
	OpLDRH: "ldrh", OpSTRH: "strh", OpLDRSB: "ldrsb", OpLDRSH: "ldrsh",
	OpLDRD: "ldrd", OpSTRD: "strd", OpLDM: "ldm", OpSTM: "stm",
	OpB: "b", OpBL: "bl", OpBX: "bx", OpBLXReg: "blx", OpBLXImm: "blx",
	OpCLZ: "clz", OpSWI: "swi", OpBKPT: "bkpt",
	OpMRC: "mrc", OpMCR: "mcr", OpPLD: "pld",

	OpThumbLSLImm: "lsl", OpThumbLSRImm: "lsr", OpThumbASRImm: "asr",
	OpThumbADDReg: "add", OpThumbSUBReg: "sub",
	OpThumbADDImm3: "add", OpThumbSUBImm3: "sub",
	OpThumbMOVImm: "mov", OpThumbCMPImm: "cmp",
	OpThumbADDImm8: "add", OpThumbSUBImm8: "sub",

	OpThumbAND: "and", OpThumbEOR: "eor", OpThumbLSL: "lsl", OpThumbLSR: "lsr",
	OpThumbASR: "asr", OpThumbADC: "adc", OpThumbSBC: "sbc", OpThumbROR: "ror",
	OpThumbTST: "tst", OpThumbNEG: "neg", OpThumbCMP: "cmp", OpThumbCMN: "cmn",
	OpThumbORR: "orr", OpThumbMUL: "mul", OpThumbBIC: "bic", OpThumbMVN: "mvn",

	OpThumbADDHi: "add", OpThumbCMPHi: "cmp", OpThumbMOVHi: "mov",
	OpThumbBX: "bx", OpThumbBLX: "blx",
	OpThumbLDRPC:  "ldr",
	OpThumbSTRReg: "str", OpThumbSTRBReg: "strb",
	OpThumbLDRReg: "ldr", OpThumbLDRBReg: "ldrb",
	OpThumbSTRHReg: "strh", OpThumbLDRSBReg: "ldrsb",
	OpThumbLDRHReg: "ldrh", OpThumbLDRSHReg: "ldrsh",
	OpThumbSTRImm: "str", OpThumbLDRImm: "ldr",
	OpThumbSTRBImm: "strb", OpThumbLDRBImm: "ldrb",
	OpThumbSTRHImm: "strh", OpThumbLDRHImm: "ldrh",
	OpThumbSTRSP: "str", OpThumbLDRSP: "ldr",
	OpThumbADDPC: "add", OpThumbADDSP: "add", OpThumbADJSP: "add",
	OpThumbPUSH: "push", OpThumbPOP: "pop",
	OpThumbSTMIA: "stmia", OpThumbLDMIA: "ldmia",
	OpThumbBCond: "b", OpThumbSWI: "swi", OpThumbB: "b",
	OpThumbBLPrefix: "bl.prefix", OpThumbBLSuffix: "bl",
	OpThumbBLXSuffix: "blx", OpThumbBKPT: "bkpt",

	OpRVLUI: "lui", OpRVAUIPC: "auipc", OpRVJAL: "jal", OpRVJALR: "jalr",
	OpRVBEQ: "beq", OpRVBNE: "bne", OpRVBLT: "blt", OpRVBGE: "bge",
	OpRVBLTU: "bltu", OpRVBGEU: "bgeu",
	OpRVLB: "lb", OpRVLH: "lh", OpRVLW: "lw", OpRVLD: "ld",
	OpRVLBU: "lbu", OpRVLHU: "lhu", OpRVLWU: "lwu",
	OpRVSB: "sb", OpRVSH: "sh", OpRVSW: "sw", OpRVSD: "sd",
	OpRVADDI: "addi", OpRVSLTI: "slti", OpRVSLTIU: "sltiu",
	OpRVXORI: "xori", OpRVORI: "ori", OpRVANDI: "andi",
	OpRVSLLI: "slli", OpRVSRLI: "srli", OpRVSRAI: "srai",
	OpRVADD: "add", OpRVSUB: "sub", OpRVSLL: "sll", OpRVSLT: "slt",
	OpRVSLTU: "sltu", OpRVXOR: "xor", OpRVSRL: "srl", OpRVSRA: "sra",
	OpRVOR: "or", OpRVAND: "and",
	OpRVADDIW: "addiw", OpRVSLLIW: "slliw", OpRVSRLIW: "srliw", OpRVSRAIW: "sraiw",
	OpRVADDW: "addw", OpRVSUBW: "subw", OpRVSLLW: "sllw", OpRVSRLW: "srlw",
	OpRVSRAW: "sraw",
	OpRVMUL:  "mul", OpRVMULH: "mulh", OpRVMULHSU: "mulhsu", OpRVMULHU: "mulhu",
	OpRVDIV: "div", OpRVDIVU: "divu", OpRVREM: "rem", OpRVREMU: "remu",
	OpRVMULW: "mulw", OpRVDIVW: "divw", OpRVDIVUW: "divuw",
	OpRVREMW: "remw", OpRVREMUW: "remuw",
	OpRVLR: "lr", OpRVSC: "sc",
	OpRVAMOSWAP: "amoswap", OpRVAMOADD: "amoadd", OpRVAMOXOR: "amoxor",
	OpRVAMOAND: "amoand", OpRVAMOOR: "amoor",
	OpRVAMOMIN: "amomin", OpRVAMOMAX: "amomax",
	OpRVAMOMINU: "amominu", OpRVAMOMAXU: "amomaxu",
	OpRVFENCE: "fence", OpRVFENCEI: "fence.i",
	OpRVECALL: "ecall", OpRVEBREAK: "ebreak",
	OpRVMRET: "mret", OpRVSRET: "sret", OpRVWFI: "wfi",
	OpRVSFENCEVMA: "sfence.vma",
	OpRVCSRRW:     "csrrw", OpRVCSRRS: "csrrs", OpRVCSRRC: "csrrc",
	OpRVCSRRWI: "csrrwi", OpRVCSRRSI: "csrrsi", OpRVCSRRCI: "csrrci",
}

// String returns the base mnemonic.
func (op Op) String() string {
	if op >= NumOps || opNames[op] == "" {
		return "op?"
	}
	return opNames[op]
}
