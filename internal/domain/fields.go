package domain

// FieldKind is the target type of a source column.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldBool
	FieldTime
	FieldInt
)

func (k FieldKind) String() string {
	switch k {
	case FieldBool:
		return "bool"
	case FieldTime:
		return "time"
	case FieldInt:
		return "int"
	default:
		return "string"
	}
}

// Field describes one column of a source file and how it lands on the
// target entity. EnumList is set for enumeration-backed fields.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	EnumList string
}

// FieldSet is the column schema for one entity kind.
type FieldSet struct {
	Kind   Kind
	Class  string
	Prefix string // legacy and target id prefix
	Fields []Field
}

// EnumFields returns field name -> enumeration list for enum-backed fields.
func (fs FieldSet) EnumFields() map[string]string {
	out := make(map[string]string)
	for _, f := range fs.Fields {
		if f.EnumList != "" {
			out[f.Name] = f.EnumList
		}
	}
	return out
}

// Field looks up a field by column name.
func (fs FieldSet) Field(name string) (Field, bool) {
	for _, f := range fs.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func str(name string) Field { return Field{Name: name, Kind: FieldString} }
func enum(name, list string) Field { return Field{Name: name, Kind: FieldString, EnumList: list} }
func ts(name string) Field { return Field{Name: name, Kind: FieldTime} }
func flag(name string) Field { return Field{Name: name, Kind: FieldBool} }
func integer(name string) Field { return Field{Name: name, Kind: FieldInt} }
func required(name string) Field { return Field{Name: name, Kind: FieldString, Required: true} }

// IncidentFields is the Incident export schema.
var IncidentFields = FieldSet{
	Kind:   KindIncident,
	Class:  ClassIncident,
	Prefix: "IR",
	Fields: []Field{
		required("Title"),
		str("Description"),
		enum("Source", "IncidentSourceEnum"),
		enum("Status", "IncidentStatusEnum"),
		enum("TierQueue", "IncidentTierQueuesEnum"),
		enum("Classification", "IncidentClassificationEnum"),
		enum("ResolutionCategory", "IncidentResolutionCategoryEnum"),
		enum("Urgency", "System.WorkItem.TroubleTicket.UrgencyEnum"),
		enum("Impact", "System.WorkItem.TroubleTicket.ImpactEnum"),
		integer("Priority"),
		str("ResolutionDescription"),
		str("ContactMethod"),
		str("UserInput"),
		ts("CreatedDate"),
		ts("LastModified"),
		ts("FirstAssignedDate"),
		ts("FirstResponseDate"),
		ts("ResolvedDate"),
		ts("ClosedDate"),
		ts("TargetResolutionTime"),
		flag("Escalated"),
		flag("NeedsKnowledgeArticle"),
		flag("HasCreatedKnowledgeArticle"),
	},
}

// ServiceRequestFields is the Service Request export schema.
var ServiceRequestFields = FieldSet{
	Kind:   KindServiceRequest,
	Class:  ClassServiceRequest,
	Prefix: "SR",
	Fields: []Field{
		required("Title"),
		str("Description"),
		enum("Status", "ServiceRequestStatusEnum"),
		enum("Priority", "ServiceRequestPriorityEnum"),
		enum("Urgency", "ServiceRequestUrgencyEnum"),
		enum("Source", "ServiceRequestSourceEnum"),
		enum("ImplementationResults", "ServiceRequestImplementationResultsEnum"),
		enum("Area", "ServiceRequestAreaEnum"),
		enum("SupportGroup", "ServiceRequestSupportGroupEnum"),
		str("Notes"),
		str("ContactMethod"),
		str("UserInput"),
		ts("CreatedDate"),
		ts("LastModified"),
		ts("CompletedDate"),
		ts("ClosedDate"),
		ts("ScheduledStartDate"),
		ts("ScheduledEndDate"),
		ts("ActualStartDate"),
		ts("ActualEndDate"),
		ts("RequiredBy"),
		flag("IsDowntime"),
	},
}

func activityCommon() []Field {
	return []Field{
		required("Title"),
		str("Description"),
		enum("Status", "ActivityStatusEnum"),
		enum("Stage", "ActivityStageEnum"),
		integer("SequenceId"),
		flag("Skip"),
		str("Notes"),
		ts("CreatedDate"),
		ts("ScheduledStartDate"),
		ts("ScheduledEndDate"),
		ts("ActualStartDate"),
		ts("ActualEndDate"),
	}
}

// ManualActivityFields is the Manual Activity export schema.
var ManualActivityFields = FieldSet{
	Kind:   KindManualActivity,
	Class:  ClassManualActivity,
	Prefix: "MA",
	Fields: append(activityCommon(),
		enum("Priority", "ActivityPriorityEnum"),
		enum("Area", "ActivityAreaEnum"),
	),
}

// ReviewActivityFields is the Review Activity export schema.
var ReviewActivityFields = FieldSet{
	Kind:   KindReviewActivity,
	Class:  ClassReviewActivity,
	Prefix: "RA",
	Fields: append(activityCommon(),
		enum("Priority", "ActivityPriorityEnum"),
		enum("Area", "ActivityAreaEnum"),
		str("ApprovalCondition"),
		integer("ApprovalPercentage"),
		flag("LineManagerShouldReview"),
		flag("OwnersOfConfigItemShouldReview"),
		str("Comments"),
	),
}

// ParallelActivityFields is the Parallel Activity export schema.
var ParallelActivityFields = FieldSet{
	Kind:   KindParallelActivity,
	Class:  ClassParallelActivity,
	Prefix: "PA",
	Fields: activityCommon(),
}

// FieldSetFor returns the schema for kind.
func FieldSetFor(kind Kind) (FieldSet, bool) {
	switch kind {
	case KindIncident:
		return IncidentFields, true
	case KindServiceRequest:
		return ServiceRequestFields, true
	case KindManualActivity:
		return ManualActivityFields, true
	case KindReviewActivity:
		return ReviewActivityFields, true
	case KindParallelActivity:
		return ParallelActivityFields, true
	}
	return FieldSet{}, false
}
