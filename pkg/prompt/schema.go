package prompt

// JSON Schemas for the per-stage judgment objects. The invoker
// validates each extracted object against its stage schema and retries
// on violation, since a malformed shape usually means oracle drift.

// ScreeningSchema constrains the first-gate judgment object.
const ScreeningSchema = `{
	"type": "object",
	"required": ["solves_real_problem", "has_commercial_potential", "is_promising"],
	"properties": {
		"solves_real_problem": {"type": "boolean"},
		"has_commercial_potential": {"type": "boolean"},
		"is_promising": {"type": "boolean"},
		"reason": {"type": "string"}
	}
}`

// CoreIdeaSchema constrains the core idea judgment object.
const CoreIdeaSchema = `{
	"type": "object",
	"required": ["is_painkiller", "is_novel", "has_viral_potential", "is_simple_and_elegant"],
	"properties": {
		"is_painkiller": {"type": "boolean"},
		"is_novel": {"type": "boolean"},
		"has_viral_potential": {"type": "boolean"},
		"is_simple_and_elegant": {"type": "boolean"},
		"summary_reason": {"type": "string"}
	}
}`

// EvaluationSchema constrains the deep evaluation judgment object.
const EvaluationSchema = `{
	"type": "object",
	"required": ["user_need_insight", "differentiated_advantage", "viral_potential", "overall_assessment"],
	"properties": {
		"user_need_insight": {"$ref": "#/$defs/dimension"},
		"differentiated_advantage": {"$ref": "#/$defs/dimension"},
		"viral_potential": {"$ref": "#/$defs/dimension"},
		"overall_assessment": {
			"type": "object",
			"required": ["recommendation"],
			"properties": {
				"final_score": {"type": "number"},
				"recommendation": {"type": "string"},
				"summary": {"type": "string"}
			}
		}
	},
	"$defs": {
		"dimension": {
			"type": "object",
			"required": ["score"],
			"properties": {
				"score": {"type": "number", "minimum": 0, "maximum": 10},
				"analysis": {"type": "string"}
			}
		}
	}
}`

// MarketSchema constrains the market analysis judgment object.
const MarketSchema = `{
	"type": "object",
	"required": ["market_timing", "competitive_landscape", "market_size", "business_model", "industry_trends"],
	"properties": {
		"market_timing": {"$ref": "#/$defs/dimension"},
		"competitive_landscape": {"$ref": "#/$defs/dimension"},
		"market_size": {"$ref": "#/$defs/dimension"},
		"business_model": {"$ref": "#/$defs/dimension"},
		"industry_trends": {"$ref": "#/$defs/dimension"},
		"overall_market_assessment": {
			"type": "object",
			"properties": {
				"final_score": {"type": "number"},
				"market_recommendation": {"type": "string"},
				"key_risks": {"type": "array", "items": {"type": "string"}},
				"key_opportunities": {"type": "array", "items": {"type": "string"}},
				"summary": {"type": "string"}
			}
		}
	},
	"$defs": {
		"dimension": {
			"type": "object",
			"required": ["score"],
			"properties": {
				"score": {"type": "number", "minimum": 0, "maximum": 10},
				"analysis": {"type": "string"}
			}
		}
	}
}`
