package mcpserver

// ImportFormatContract describes the canonical import payload that
// LLM consumers should follow when creating or updating catalog units.
const ImportFormatContract = `# Fehu Import Format Contract

Every import payload sent to Fehu MUST follow this structure.

## Structure

` + "```" + `json
{
  "items": [
    {
      "id": "3fa85f64-5717-4562-b3fc-2c963f66a333",
      "name": "Smartphones",
      "type": "CATEGORY",
      "parentId": null
    },
    {
      "id": "3fa85f64-5717-4562-b3fc-2c963f66a444",
      "name": "jPhone 13",
      "type": "OFFER",
      "parentId": "3fa85f64-5717-4562-b3fc-2c963f66a333",
      "price": 79999
    }
  ],
  "updateDate": "2022-05-28T21:12:01.000Z"
}
` + "```" + `

## Rules

1. **updateDate is mandatory** and shared by every item in the batch. It
   becomes the last-modified timestamp of each imported unit and of every
   ancestor category on its chain.
2. **type is one of CATEGORY or OFFER** and is immutable: re-importing an
   existing id with a different type fails the whole batch.
3. **Offers carry a non-negative integer price; categories carry none.**
   A category's displayed price is always derived at read time.
4. **parentId must reference an existing CATEGORY** (units imported earlier
   in the same batch count). Omit it or send null for a root unit.
5. **Updates are patches.** For an existing id, omitted fields keep their
   stored values; an explicit ` + "`" + `"parentId": null` + "`" + ` promotes the unit to root.
6. **Omit id to create a unit with a generated UUID.** Ids must be unique
   within one payload.
7. **The batch is atomic.** One invalid item rejects the entire payload;
   nothing is written.
`
