package models

// AttributeType enum for different DynamoDB attribute types
type AttributeType int

const (
	StringType AttributeType = iota
	NumberType
)

// KeyAttribute is one part of a primary or index key
type KeyAttribute struct {
	Name  string
	Value string
	Type  AttributeType
}

// QueryConfig holds all the configuration for any DynamoDB query
type QueryConfig struct {
	TableName string
	IndexName string // empty for primary key queries
	KeyName   string
	KeyValue  string
	KeyType   AttributeType

	// Optional sort key condition
	SortKeyName  string
	SortKeyOp    SortKeyOperator
	SortKeyValue string
	SortKeyEnd   string // upper bound for SortKeyBetween
	SortKeyType  AttributeType

	// Optional filter applied after the key condition
	FilterExpression string
	FilterNames      map[string]string
	FilterValues     map[string]interface{}

	Limit int32 // page size hint; 0 lets the store decide
}

// SortKeyOperator restricts the sort key in a query
type SortKeyOperator string

const (
	SortKeyEquals     SortKeyOperator = "="
	SortKeyBetween    SortKeyOperator = "BETWEEN"
	SortKeyBeginsWith SortKeyOperator = "begins_with"
	SortKeyGreaterEq  SortKeyOperator = ">="
	SortKeyLessEq     SortKeyOperator = "<="
)

// TransactOperation is one write in a multi-item transaction
type TransactOperation struct {
	TableName string
	// Exactly one of Put or Delete is set
	Put    interface{}
	Delete []KeyAttribute

	ConditionExpression string
	ConditionNames      map[string]string
	ConditionValues     map[string]interface{}
}
