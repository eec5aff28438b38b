package standards

const setSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["standards_set", "rules"],
  "properties": {
    "standards_set": { "type": "string", "minLength": 1 },
    "name": { "type": "string" },
    "version": { "type": "string" },
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["standard_ref", "title", "body"],
        "properties": {
          "standard_ref": { "type": "string", "minLength": 1 },
          "title": { "type": "string" },
          "body": { "type": "string" },
          "tags": { "type": "array", "items": { "type": "string" } },
          "severity_default": { "enum": ["info", "warning", "violation"] }
        }
      }
    }
  }
}`
