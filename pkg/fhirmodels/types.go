package fhirmodels

// Common FHIR value set constants used across the application.

// QuestionnaireItemType values per FHIR R4.
const (
	ItemTypeGroup      = "group"
	ItemTypeDisplay    = "display"
	ItemTypeBoolean    = "boolean"
	ItemTypeDecimal    = "decimal"
	ItemTypeInteger    = "integer"
	ItemTypeDate       = "date"
	ItemTypeDateTime   = "dateTime"
	ItemTypeTime       = "time"
	ItemTypeString     = "string"
	ItemTypeText       = "text"
	ItemTypeURL        = "url"
	ItemTypeChoice     = "choice"
	ItemTypeOpenChoice = "open-choice"
	ItemTypeAttachment = "attachment"
	ItemTypeReference  = "reference"
	ItemTypeQuantity   = "quantity"
)

// ItemControl codes from the SDC questionnaire-item-control value set.
const (
	ItemControlGrid         = "grid"
	ItemControlGTable       = "gtable"
	ItemControlTable        = "table"
	ItemControlTabContainer = "tab-container"
	ItemControlPage         = "page"
)

// QuestionnaireResponseStatus codes.
const (
	ResponseStatusInProgress     = "in-progress"
	ResponseStatusCompleted      = "completed"
	ResponseStatusAmended        = "amended"
	ResponseStatusEnteredInError = "entered-in-error"
	ResponseStatusStopped        = "stopped"
)

// Extension URLs read from questionnaire items.
const (
	ExtItemControl = "http://hl7.org/fhir/StructureDefinition/questionnaire-itemControl"
	ExtShortText   = "http://hl7.org/fhir/uv/sdc/StructureDefinition/sdc-questionnaire-shortText"
)
