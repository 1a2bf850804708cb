package outbox

const contractCommittedSchema = `{
  "type": "object",
  "title": "ContractCommitted",
  "properties": {
    "contract_id": {"type": "string"},
    "user_id": {"type": "string"},
    "goal_type": {"type": "string"},
    "goal_description": {"type": "string"},
    "deadline_utc": {"type": "string", "format": "date-time"},
    "penalty_type": {"type": "string"},
    "is_public": {"type": "boolean"}
  },
  "required": ["contract_id", "user_id", "goal_type", "goal_description", "deadline_utc", "penalty_type", "is_public"],
  "additionalProperties": false
}`

const contractResolvedSchema = `{
  "type": "object",
  "title": "ContractResolved",
  "properties": {
    "contract_id": {"type": "string"},
    "user_id": {"type": "string"},
    "status": {"type": "string"},
    "reaped_at": {"type": "string", "format": "date-time"}
  },
  "required": ["contract_id", "user_id", "status"],
  "additionalProperties": false
}`

const stakeRecordedSchema = `{
  "type": "object",
  "title": "StakeRecorded",
  "properties": {
    "id": {"type": "string"},
    "user_id": {"type": "string"},
    "event_type": {"type": "string"},
    "amount": {"type": "integer"},
    "reason": {"type": "string"},
    "confidence": {"type": "number"},
    "governance_verdict": {"type": "string"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["id", "user_id", "event_type", "amount", "reason", "confidence", "created_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event types to their JSON Schema definitions registered
// with the Schema Registry.
var schemaCatalog = map[string]string{
	"contract.committed": contractCommittedSchema,
	"contract.resolved":  contractResolvedSchema,
	"stake.recorded":     stakeRecordedSchema,
}
