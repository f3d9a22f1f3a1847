package canoe

import (
	"strconv"

	"github.com/axonops/vectorcom/pkg/errors"
)

// Verdict is the result of a test element
type Verdict int

const (
	VerdictNotAvailable      Verdict = 0
	VerdictPassed            Verdict = 1
	VerdictFailed            Verdict = 2
	VerdictNone              Verdict = 3
	VerdictInconclusive      Verdict = 4
	VerdictErrorInTestSystem Verdict = 5
)

var verdictNames = map[Verdict]string{
	VerdictNotAvailable:      "NotAvailable",
	VerdictPassed:            "Passed",
	VerdictFailed:            "Failed",
	VerdictNone:              "None",
	VerdictInconclusive:      "Inconclusive",
	VerdictErrorInTestSystem: "ErrorInTestSystem",
}

func (v Verdict) String() string {
	return enumString(verdictNames, v, "Verdict")
}

// TestElementType identifies a node kind in the test tree
type TestElementType int

const (
	TestTypeReserved      TestElementType = 0
	TestTypeConfiguration TestElementType = 1
	TestTypeUnit          TestElementType = 2
	TestTypeGroup         TestElementType = 3
	TestTypeSequence      TestElementType = 4
	TestTypeCase          TestElementType = 5
	TestTypeFixture       TestElementType = 6
	TestTypeCaseList      TestElementType = 7
	TestTypeSequenceList  TestElementType = 8
)

var testElementTypeNames = map[TestElementType]string{
	TestTypeReserved:      "Reserved",
	TestTypeConfiguration: "TestConfiguration",
	TestTypeUnit:          "TestUnit",
	TestTypeGroup:         "TestGroup",
	TestTypeSequence:      "TestSequence",
	TestTypeCase:          "TestCase",
	TestTypeFixture:       "TestFixture",
	TestTypeCaseList:      "TestCaseList",
	TestTypeSequenceList:  "TestSequenceList",
}

func (t TestElementType) String() string {
	return enumString(testElementTypeNames, t, "TestElementType")
}

// StopReason tells why a test configuration stopped
type StopReason int

const (
	StopReasonEnd           StopReason = 0
	StopReasonUserAbort     StopReason = 1
	StopReasonGeneralError  StopReason = 2
	StopReasonVerdictImpact StopReason = 3
)

var stopReasonNames = map[StopReason]string{
	StopReasonEnd:           "End",
	StopReasonUserAbort:     "UserAbort",
	StopReasonGeneralError:  "GeneralError",
	StopReasonVerdictImpact: "VerdictImpact",
}

func (r StopReason) String() string {
	return enumString(stopReasonNames, r, "StopReason")
}

// ConfigurationMode is the online/offline mode of a configuration
type ConfigurationMode int

const (
	ModeOnline  ConfigurationMode = 0
	ModeOffline ConfigurationMode = 1
)

var configurationModeNames = map[ConfigurationMode]string{
	ModeOnline:  "Online",
	ModeOffline: "Offline",
}

func (m ConfigurationMode) String() string {
	return enumString(configurationModeNames, m, "ConfigurationMode")
}

// ExecutionEnvironment is the bitness the configuration runs in
type ExecutionEnvironment int

const (
	ExecutionWin32 ExecutionEnvironment = 0
	ExecutionWin64 ExecutionEnvironment = 1
)

var executionEnvironmentNames = map[ExecutionEnvironment]string{
	ExecutionWin32: "Win32",
	ExecutionWin64: "Win64",
}

func (e ExecutionEnvironment) String() string {
	return enumString(executionEnvironmentNames, e, "ExecutionEnvironment")
}

func enumString[T ~int](names map[T]string, v T, kind string) string {
	if n, ok := names[v]; ok {
		return n
	}
	return kind + "(" + strconv.Itoa(int(v)) + ")"
}

// parseEnum validates a raw COM integer against the named constants of T
func parseEnum[T ~int](names map[T]string, raw int, kind string) (T, error) {
	v := T(raw)
	if _, ok := names[v]; !ok {
		return v, errors.NewUnknownValueError(kind, raw)
	}
	return v, nil
}

func parseVerdict(raw int) (Verdict, error) {
	return parseEnum(verdictNames, raw, "Verdict")
}

func parseTestElementType(raw int) (TestElementType, error) {
	return parseEnum(testElementTypeNames, raw, "TestElementType")
}

func parseStopReason(raw int) (StopReason, error) {
	return parseEnum(stopReasonNames, raw, "StopReason")
}

func parseConfigurationMode(raw int) (ConfigurationMode, error) {
	return parseEnum(configurationModeNames, raw, "ConfigurationMode")
}

func parseExecutionEnvironment(raw int) (ExecutionEnvironment, error) {
	return parseEnum(executionEnvironmentNames, raw, "ExecutionEnvironment")
}
