package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout the variation import
	pipeline and its associated services.
*/
type Encoding string
type ObjectType string
type Effect string

type Zygosity int
type Ploidy int
