package terminal

type commandGroup uint8

const (
	otherCmds commandGroup = iota
	symbolCmds
	sourceCmds
)

type commandGroupDescription struct {
	description string
	group       commandGroup
}

var commandGroupDescriptions = []commandGroupDescription{
	{"Looking up functions and variables", symbolCmds},
	{"Viewing compile units and source code", sourceCmds},
	{"Other commands", otherCmds},
}
